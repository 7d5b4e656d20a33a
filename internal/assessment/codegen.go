package assessment

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"siterisk/internal/study"
	"siterisk/pkg/apperr"
)

// Generated assessment codes look like FSA-CFP-CIN-20250220-001:
// site code, optional sponsor code, first three protocol characters,
// assessment date, and a per-combination sequence.

const unknownCodePart = "UNK"

// flourishSiteCodes maps known Flourish locations to their short codes.
var flourishSiteCodes = []struct {
	fragment string
	code     string
}{
	{"san antonio", "FSA"},
	{"san diego", "FSD"},
	{"new york", "FNY"},
	{"los angeles", "FLA"},
	{"texas", "FTX"},
	{"california", "FCA"},
}

func (s *Service) generateCode(ctx context.Context, st *study.Study, assessmentDate string) (string, error) {
	site := st.Site
	if site == "" {
		site = unknownCodePart
	}
	var sponsorCode string
	if st.SponsorCode != nil {
		sponsorCode = *st.SponsorCode
	}
	protocolCode := unknownCodePart
	if st.Protocol != nil && *st.Protocol != "" {
		protocolCode = *st.Protocol
		if len(protocolCode) > 3 {
			protocolCode = protocolCode[:3]
		}
	}

	dateFormatted, err := formatCodeDate(assessmentDate)
	if err != nil {
		return "", err
	}

	prefix := siteCode(site)
	if sponsorCode != "" {
		prefix += "-" + sponsorCode
	}
	prefix += "-" + protocolCode + "-" + dateFormatted

	sequence := s.nextSequence(ctx, prefix)
	code := fmt.Sprintf("%s-%03d", prefix, sequence)
	s.logger.InfoContext(ctx, "generated assessment code", slog.String("code", code))
	return code, nil
}

// nextSequence reads the highest existing code for the prefix and adds
// one. Lookup failures fall back to 1 rather than blocking the save.
func (s *Service) nextSequence(ctx context.Context, prefix string) int {
	last, err := s.store.LastCodeLike(ctx, prefix+"-%")
	if err != nil {
		s.logger.ErrorContext(ctx, "reading last assessment code", slog.Any("error", err))
		return 1
	}
	if last == nil {
		return 1
	}
	parts := strings.Split(*last, "-")
	sequence, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		s.logger.WarnContext(ctx, "could not parse sequence from assessment code", slog.String("code", *last))
		return 1
	}
	return sequence + 1
}

// siteCode shortens a site name: Flourish locations get fixed codes, a
// one-word name its first three letters, a two-word name the first
// letter plus the next word's first two, and longer names their
// initials.
func siteCode(siteName string) string {
	if siteName == "" || siteName == unknownCodePart {
		return unknownCodePart
	}
	lower := strings.ToLower(strings.TrimSpace(siteName))
	if strings.Contains(lower, "flourish") {
		for _, known := range flourishSiteCodes {
			if strings.Contains(lower, known.fragment) {
				return known.code
			}
		}
		return "FLR"
	}
	words := strings.Fields(siteName)
	switch len(words) {
	case 0:
		return unknownCodePart
	case 1:
		return strings.ToUpper(firstN(words[0], 3))
	case 2:
		return strings.ToUpper(firstN(words[0], 1) + firstN(words[1], 2))
	default:
		return strings.ToUpper(firstN(words[0], 1) + firstN(words[1], 1) + firstN(words[2], 1))
	}
}

func formatCodeDate(assessmentDate string) (string, error) {
	if parsed, err := time.Parse("2006-01-02", assessmentDate); err == nil {
		return parsed.Format("20060102"), nil
	}
	if len(assessmentDate) == 8 && isDigits(assessmentDate) {
		return assessmentDate, nil
	}
	return "", apperr.Newf(apperr.CodeBadRequest, "Invalid date format: %s. Expected YYYY-MM-DD or YYYYMMDD", assessmentDate)
}

func firstN(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
