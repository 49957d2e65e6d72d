package bot

import (
	"strings"
	"testing"
	"time"

	"jobmirror/internal/repository"
	"jobmirror/internal/usecase"
)

func digestItem(id int64, title string) usecase.DigestItem {
	return usecase.DigestItem{Job: repository.Job{
		JobPrimaryID: id,
		JobContent: repository.JobContent{
			JobTitle:   title,
			OrgName:    "Teletalk Bangladesh Limited",
			Vacancy:    "10",
			DeadlineAt: time.Now().Add(72 * time.Hour),
		},
	}}
}

func TestBuildDigestMessages_HeaderAndEscaping(t *testing.T) {
	lastSync := time.Date(2026, 8, 29, 4, 0, 0, 0, time.UTC)
	msgs := buildDigestMessages("Computer <jobs>", []usecase.DigestItem{
		digestItem(1, "Operator <A&B>"),
	}, &lastSync)

	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if !strings.Contains(msgs[0], "Computer &lt;jobs&gt;") {
		t.Fatalf("title must be HTML-escaped: %s", msgs[0])
	}
	if !strings.Contains(msgs[0], "Operator &lt;A&amp;B&gt;") {
		t.Fatalf("job title must be HTML-escaped: %s", msgs[0])
	}
	if !strings.Contains(msgs[0], "Last sync:") {
		t.Fatalf("header must carry the last sync line: %s", msgs[0])
	}
}

func TestBuildDigestMessages_ChunksLongDigests(t *testing.T) {
	items := make([]usecase.DigestItem, 60)
	for i := range items {
		items[i] = digestItem(int64(i+1), strings.Repeat("Very Long Job Title ", 10))
	}

	msgs := buildDigestMessages("All jobs", items, nil)
	if len(msgs) < 2 {
		t.Fatalf("expected chunking, got %d message(s)", len(msgs))
	}
	for i, m := range msgs {
		if len(m) > 4096 {
			t.Fatalf("message %d exceeds the Telegram limit: %d chars", i, len(m))
		}
	}
}

func TestParseAllowedChatIDs(t *testing.T) {
	if got := parseAllowedChatIDs(""); got != nil {
		t.Fatalf("empty list means no restriction, got %v", got)
	}
	got := parseAllowedChatIDs(" 123, -456, junk , ")
	if len(got) != 2 {
		t.Fatalf("expected 2 ids, got %v", got)
	}
	if _, ok := got[-456]; !ok {
		t.Fatalf("negative group ids must parse")
	}
}

func TestParseLimitArg(t *testing.T) {
	if got := parseLimitArg([]string{"/jobs"}, 25); got != 25 {
		t.Fatalf("missing arg uses default, got %d", got)
	}
	if got := parseLimitArg([]string{"/jobs", "10"}, 25); got != 10 {
		t.Fatalf("expected 10, got %d", got)
	}
	if got := parseLimitArg([]string{"/jobs", "9999"}, 25); got != maxListLimit {
		t.Fatalf("expected clamp to %d, got %d", maxListLimit, got)
	}
	if got := parseLimitArg([]string{"/jobs", "abc"}, 25); got != 25 {
		t.Fatalf("junk arg uses default, got %d", got)
	}
}

func TestParseDaysArg(t *testing.T) {
	if got := parseDaysArg([]string{"/expiring"}); got != 7 {
		t.Fatalf("default is 7, got %d", got)
	}
	if got := parseDaysArg([]string{"/expiring", "3"}); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
	if got := parseDaysArg([]string{"/expiring", "365"}); got != 30 {
		t.Fatalf("expected clamp to 30, got %d", got)
	}
}

func TestDaysLeft(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	if got := daysLeft(now.Add(49*time.Hour), now); got != 3 {
		t.Fatalf("partial days round up, got %d", got)
	}
	if got := daysLeft(now.Add(-time.Hour), now); got != 0 {
		t.Fatalf("just-passed deadline is 0, got %d", got)
	}
}
