package listing

import (
	"regexp"
	"strings"

	"github.com/ryanDing26/career-gpt/engine/domain"
)

const (
	// headerSeparator is the row between the table header and its body.
	headerSeparator = "| ------- | ---- | -------- | ---------------- | ----------- |"
	// tableEnd is the comment the upstream maintainers keep below the table.
	tableEnd = "<!-- Please leave a one line gap between this and the table TABLE_END (DO NOT CHANGE THIS LINE) -->"

	// backRefGlyph in the company cell means "same company as the nearest
	// prior row with a real name".
	backRefGlyph = "↳"
	// sponsorshipGlyph flags postings that do not offer visa sponsorship;
	// it is noise in the title and stripped.
	sponsorshipGlyph = "🛂"

	// Cell positions after splitting a row on '|'. Index 0 is the empty
	// segment before the leading pipe.
	cellCompany  = 1
	cellTitle    = 2
	cellLocation = 3
	cellStatus   = 4
	cellPosted   = 5
	minCells     = 6
)

// companyLink matches the bold markdown link wrapper around company names,
// capturing the bare name.
var companyLink = regexp.MustCompile(`^\*\*\[(.*?)\]\(.*?\)\*\*$`)

// Parse extracts open postings from the raw markdown document, in document
// order. A missing table anchor is a format-kind error (the upstream layout
// changed); malformed rows are skipped, not fatal. Skipped counts how many
// rows were dropped.
func Parse(markdown string) (postings []domain.Posting, skipped int, err error) {
	start := strings.Index(markdown, headerSeparator)
	if start == -1 {
		return nil, 0, domain.Ef(domain.KindFormat, "listing.parse", "header separator row not found")
	}
	body := markdown[start+len(headerSeparator):]

	end := strings.Index(body, tableEnd)
	if end == -1 {
		return nil, 0, domain.Ef(domain.KindFormat, "listing.parse", "table end marker not found")
	}
	body = body[:end]

	// lastCompany carries the most recent real company name for ↳ rows.
	var lastCompany string

	for _, line := range strings.Split(body, "\n") {
		cells := strings.Split(line, "|")
		if len(cells) < minCells {
			continue // blank line or not a table row
		}

		company := strings.TrimSpace(cells[cellCompany])
		title := strings.TrimSpace(cells[cellTitle])
		location := strings.TrimSpace(cells[cellLocation])
		status := strings.TrimSpace(cells[cellStatus])
		posted := strings.TrimSpace(cells[cellPosted])

		// Back-references resolve against the nearest prior real name,
		// even when that row itself was skipped (e.g. closed).
		if company == backRefGlyph {
			company = lastCompany
		} else if company != "" {
			if m := companyLink.FindStringSubmatch(company); m != nil {
				company = m[1]
			}
			lastCompany = company
		}

		if err := domain.ValidateRow(company, title, location, status, posted); err != nil {
			skipped++
			continue
		}

		postings = append(postings, domain.Posting{
			Company:    company,
			Title:      normalizeTitle(title),
			Location:   normalizeLocation(location),
			PostedDate: posted,
		})
	}
	return postings, skipped, nil
}

// normalizeTitle strips the sponsorship marker from a title cell.
func normalizeTitle(title string) string {
	return strings.TrimSpace(strings.ReplaceAll(title, sponsorshipGlyph, ""))
}

// normalizeLocation merges multi-location cells, which the document separates
// with </br>, into one readable phrase.
func normalizeLocation(location string) string {
	return strings.ReplaceAll(location, "</br>", " and ")
}
