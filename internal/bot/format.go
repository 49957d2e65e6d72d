package bot

import (
	"fmt"
	"html"
	"math"
	"strings"
	"time"

	"jobmirror/internal/usecase"
)

// Telegram caps messages at 4096 chars; chunk well under it so a long block
// never splits mid-entity.
const maxMessageLen = 3500

var dhakaZone = time.FixedZone("Asia/Dhaka", 6*60*60)

func escapeHTML(s string) string {
	return html.EscapeString(s)
}

func formatDhakaTime(t time.Time) string {
	return t.In(dhakaZone).Format("02 Jan 2006 03:04 PM")
}

func daysLeft(deadline, now time.Time) int {
	return int(math.Ceil(deadline.Sub(now).Hours() / 24))
}

// buildDigestMessages renders one header plus one block per job, merged from
// the store row and, when present, the cached upstream details.
func buildDigestMessages(title string, items []usecase.DigestItem, lastSync *time.Time) []string {
	now := time.Now()

	var header strings.Builder
	fmt.Fprintf(&header, "<b>%s</b>: <b>%d</b> active\n", escapeHTML(title), len(items))
	if lastSync != nil {
		fmt.Fprintf(&header, "Last sync: <code>%s</code>\n", escapeHTML(formatDhakaTime(*lastSync)))
	}

	msgs := []string{}
	current := header.String()

	for i, item := range items {
		block := formatJobBlock(i+1, item, now)
		if len(current)+len(block) > maxMessageLen && current != "" {
			msgs = append(msgs, strings.TrimSpace(current))
			current = ""
		}
		current += "\n" + block
	}
	if strings.TrimSpace(current) != "" {
		msgs = append(msgs, strings.TrimSpace(current))
	}
	return msgs
}

func formatJobBlock(n int, item usecase.DigestItem, now time.Time) string {
	j := item.Job
	d := item.Details

	jobTitle := j.JobTitle
	org := j.OrgName
	if j.ShortName.Valid && j.ShortName.String != "" {
		org = j.ShortName.String
	}
	vacancy := j.Vacancy
	viewed := j.ViewCount
	deadline := j.DeadlineAt
	applyURL := j.ApplicationSiteURL
	advNo := "-"

	if d != nil {
		if d.JobTitle != "" {
			jobTitle = d.JobTitle
		}
		if d.Organization != nil {
			if d.Organization.ShortName != nil && *d.Organization.ShortName != "" {
				org = *d.Organization.ShortName
			} else if d.Organization.Name != "" {
				org = d.Organization.Name
			}
		}
		if d.Vacancy != "" {
			vacancy = d.Vacancy
		}
		if d.ViewCount != nil {
			viewed = *d.ViewCount
		}
		if d.ApplicationSite != "" {
			applyURL = d.ApplicationSite
		}
		if d.AdvertisementNo != nil && *d.AdvertisementNo != "" {
			advNo = *d.AdvertisementNo
		}
	}

	left := daysLeft(deadline, now)
	leftLabel := "Expired"
	if left >= 0 {
		leftLabel = fmt.Sprintf("%d days left", left)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>%d. %s</b>\n", n, escapeHTML(jobTitle))
	fmt.Fprintf(&b, "%s — <i>%s</i>\n", escapeHTML(org), escapeHTML(leftLabel))
	fmt.Fprintf(&b, "Vacancy: %s | Viewed: %d\n", escapeHTML(vacancy), viewed)
	fmt.Fprintf(&b, "Deadline: %s\n", escapeHTML(formatDhakaTime(deadline)))
	if advNo != "-" {
		fmt.Fprintf(&b, "Adv no: %s\n", escapeHTML(advNo))
	}
	if applyURL != "" {
		fmt.Fprintf(&b, "<a href=\"%s\">Apply</a>\n", escapeHTML(applyURL))
	}
	return b.String()
}
