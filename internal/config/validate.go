package config

import (
	"fmt"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a normalized copy of cfg plus any findings.
// Defaults are filled here so the rest of the engine never re-checks them.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	out := cfg
	var res Validation

	trimList := func(xs []string) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.TrimSpace(x)
			if x == "" {
				continue
			}
			key := strings.ToLower(x)
			if seen[key] {
				continue
			}
			seen[key] = true
			ys = append(ys, x)
		}
		return ys
	}

	out.Filters.Keywords = trimList(out.Filters.Keywords)
	out.Sources.BidNet.Regions = trimList(out.Sources.BidNet.Regions)

	// ---- Defaults ----

	if out.Run.Concurrency <= 0 {
		out.Run.Concurrency = 4
	}
	if out.Run.AdapterTimeoutSeconds <= 0 {
		out.Run.AdapterTimeoutSeconds = 300
	}
	if out.Fetch.MaxAttempts <= 0 {
		out.Fetch.MaxAttempts = 3
	}
	if out.Fetch.TimeoutSeconds <= 0 {
		out.Fetch.TimeoutSeconds = 20
	}
	if out.Fetch.HostRatePerSec <= 0 {
		out.Fetch.HostRatePerSec = 2
	}
	if out.Fetch.HostBurst <= 0 {
		out.Fetch.HostBurst = 4
	}
	if out.App.LogMode == "" {
		out.App.LogMode = "dev"
	}
	if out.Storage.Driver == "" {
		out.Storage.Driver = "sqlite"
	}

	// ---- Validation rules ----

	switch out.Storage.Driver {
	case "sqlite", "postgres", "none":
	default:
		res.addErr("storage.driver %q is not one of sqlite|postgres|none", out.Storage.Driver)
	}
	if out.Storage.Driver == "postgres" && strings.TrimSpace(out.Storage.PostgresDSN) == "" {
		res.addErr("storage.postgres_dsn is required when storage.driver=postgres")
	}

	if len(out.Filters.Keywords) == 0 {
		res.addWarn("filters.keywords is empty; every listing will pass the relevance filter")
	}

	src := out.Sources
	if !src.SAMGov.Enabled && !src.BidNet.Enabled && !src.TXSmartBuy.Enabled && !src.GovFeeds.Enabled {
		res.addErr("no sources enabled")
	}
	if src.BidNet.Enabled && len(src.BidNet.Regions) == 0 {
		res.addErr("sources.bidnet.regions is empty with bidnet enabled")
	}
	if src.GovFeeds.Enabled && len(src.GovFeeds.Feeds) == 0 {
		res.addErr("sources.govfeeds.feeds is empty with govfeeds enabled")
	}
	for i, f := range src.GovFeeds.Feeds {
		if strings.TrimSpace(f.URL) == "" {
			res.addErr("sources.govfeeds.feeds[%d].url is empty", i)
		}
	}

	if out.Run.AdapterTimeoutSeconds < 30 {
		res.addWarn("run.adapter_timeout_seconds is very low (%d); slow portals may always time out", out.Run.AdapterTimeoutSeconds)
	}

	return out, res
}
