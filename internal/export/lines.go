package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/referral-labels/internal/model"
	"github.com/referral-labels/internal/normalize"
)

// NameFormat picks the name printed on each label.
type NameFormat string

const (
	NameOffice  NameFormat = "office"
	NameContact NameFormat = "contact"
)

func ParseNameFormat(s string) (NameFormat, error) {
	switch f := NameFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return NameOffice, nil
	case NameOffice, NameContact:
		return f, nil
	}
	return "", fmt.Errorf("unknown name format %q", s)
}

// Options control both export formats.
type Options struct {
	NameFormat NameFormat
	Template   string
	ShowTo     bool
}

// LabelName returns the office or contact name. A blank contact falls back
// to the office name.
func LabelName(l model.MailingLabelData, format NameFormat) string {
	if format == NameContact && strings.TrimSpace(l.ContactName) != "" {
		return l.ContactName
	}
	return l.OfficeName
}

// LabelLines returns the printed lines of one label with empty lines removed.
func LabelLines(l model.MailingLabelData, opts Options) []string {
	candidates := []string{
		LabelName(l, opts.NameFormat),
		l.Address1,
		l.Address2,
		normalize.CityLine(l.City, l.State, l.Zip),
	}
	lines := make([]string, 0, len(candidates)+1)
	if opts.ShowTo {
		lines = append(lines, "To:")
	}
	for _, s := range candidates {
		if s = strings.TrimSpace(s); s != "" {
			lines = append(lines, s)
		}
	}
	return lines
}

// FileName returns mailing-labels-<date>.<ext> for the given day.
func FileName(ext string, now time.Time) string {
	return fmt.Sprintf("mailing-labels-%s.%s", now.Format("2006-01-02"), strings.TrimPrefix(ext, "."))
}
