package scheduler

import (
	"context"
	"time"

	"github.com/skyfold/cloudflare-ddns/internal/cloudflare"
	"github.com/skyfold/cloudflare-ddns/internal/metrics"
	"github.com/skyfold/cloudflare-ddns/internal/profile"
)

// UpdateComment tags every pushed record as an automated DDNS update.
const UpdateComment = "Automated DDNS update"

// skippedResponse is logged in place of a provider response when a record is
// skipped because its public IP could not be resolved.
const skippedResponse = `{"success": false, "error": "public IP could not be resolved"}`

// reconcile runs one full reconciliation pass for a profile. It is the error
// boundary for all per-tick work: configuration problems, resolver failures,
// and update failures are logged and never escape to stop the timer. There is
// no retry; the next scheduled fire is the retry.
func (s *Scheduler) reconcile(ctx context.Context, profileName string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("reconciliation pass panicked", "profile", profileName, "panic", r)
		}
	}()

	start := time.Now()
	metrics.RecordPass(profileName)
	defer func() {
		metrics.RecordPassDuration(profileName, time.Since(start).Seconds())
	}()

	p, err := s.store.Get(ctx, profileName)
	if err != nil {
		s.logger.Warn("profile unavailable, skipping pass", "profile", profileName, "error", err)
		return
	}
	if err := p.Validate(); err != nil {
		s.logger.Warn("profile invalid, skipping pass", "profile", profileName, "error", err)
		return
	}

	// Same-family lookups are de-duplicated within one pass; results are
	// identical for every record in the tick.
	resolved := make(map[profile.Family]string)

	for _, rec := range p.DNSRecords {
		ip, seen := resolved[rec.Content]
		if !seen {
			addr, err := s.resolver.Resolve(ctx, rec.Content)
			if err != nil {
				s.logger.Warn("public IP lookup failed",
					"profile", profileName, "family", rec.Content, "error", err)
				metrics.RecordResolveFailure(string(rec.Content))
				addr = ""
			}
			resolved[rec.Content] = addr
			ip = addr
		}

		domain := p.FQDN(rec)

		// Never push an empty address: an unresolved IP skips the record
		// until the next scheduled fire.
		if ip == "" {
			s.activity.AppendOutcome(profileName, domain, "", skippedResponse)
			metrics.RecordUpdate(profileName, metrics.OutcomeSkipped)
			continue
		}

		payload := cloudflare.UpdatePayload{
			Content: ip,
			Name:    domain,
			Proxied: rec.Proxied,
			Type:    rec.Type,
			TTL:     profile.NormalizeTTL(rec.TTL),
			Comment: UpdateComment,
		}

		body := s.updater.UpdateRecord(ctx, p.APIKey, p.ZoneID, rec.RecordID, payload)
		s.activity.AppendOutcome(profileName, domain, ip, body)

		outcome := metrics.OutcomeFailure
		if cloudflare.ParseResponse(body).Success {
			outcome = metrics.OutcomeSuccess
		}
		metrics.RecordUpdate(profileName, outcome)

		s.logger.Debug("record update finished",
			"profile", profileName, "domain", domain, "ip", ip, "outcome", outcome)
	}
}
