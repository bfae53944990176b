package config

import "strings"

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataRoot, err = expandPath(c.Paths.DataRoot); err != nil {
		return err
	}
	if c.Paths.DBPath, err = expandPath(c.Paths.DBPath); err != nil {
		return err
	}
	if c.Paths.ProceduresDir, err = expandPath(c.Paths.ProceduresDir); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(c.Sources.Systems))
	systems := make([]string, 0, len(c.Sources.Systems))
	for _, system := range c.Sources.Systems {
		normalized := strings.ToLower(strings.TrimSpace(system))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		systems = append(systems, normalized)
	}
	c.Sources.Systems = systems

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}
