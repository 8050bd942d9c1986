package cliconfig

// MergeConfig merges source config into target, updating sources tracking.
// Only non-zero values from source are applied.
func MergeConfig(target, source *CLIConfig, sourceType string) {
	if source == nil {
		return
	}
	if target.Sources == nil {
		target.Sources = make(map[string]string)
	}

	if source.BaseURL != "" {
		target.BaseURL = source.BaseURL
		target.Sources["baseUrl"] = sourceType
	}
	if source.WarehouseID != "" {
		target.WarehouseID = source.WarehouseID
		target.Sources["warehouseId"] = sourceType
	}
	if source.Mode != "" {
		target.Mode = source.Mode
		target.Sources["mode"] = sourceType
	}
	if source.Timeout != 0 {
		target.Timeout = source.Timeout
		target.Sources["timeout"] = sourceType
	}
	if source.Host != "" {
		target.Host = source.Host
		target.Sources["host"] = sourceType
	}
	if source.Port != 0 {
		target.Port = source.Port
		target.Sources["port"] = sourceType
	}
	if source.Path != "" {
		target.Path = source.Path
		target.Sources["path"] = sourceType
	}
	if boolIsSet(source, "dnsRebindingProtection") {
		target.DNSRebindingProtection = source.DNSRebindingProtection
		target.Sources["dnsRebindingProtection"] = sourceType
	}
	if len(source.AllowedHosts) > 0 {
		target.AllowedHosts = append([]string(nil), source.AllowedHosts...)
		target.Sources["allowedHosts"] = sourceType
	}
	if source.LogLevel != "" {
		target.LogLevel = source.LogLevel
		target.Sources["logLevel"] = sourceType
	}
	if source.LogFormat != "" {
		target.LogFormat = source.LogFormat
		target.Sources["logFormat"] = sourceType
	}
}

// boolIsSet reports whether a boolean field identified by its YAML key was
// explicitly set in the source config. Without SetFields (a config built in
// code) only true counts as set.
func boolIsSet(cfg *CLIConfig, yamlKey string) bool {
	if cfg.SetFields != nil {
		return cfg.SetFields[yamlKey]
	}
	switch yamlKey {
	case "dnsRebindingProtection":
		return cfg.DNSRebindingProtection
	}
	return false
}
