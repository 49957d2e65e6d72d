package bot

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"jobmirror/internal/repository"
	"jobmirror/internal/usecase"
)

const (
	cursorKey       = "bot:update_offset"
	pollTimeoutSecs = 30
	pollRetryDelay  = 5 * time.Second

	defaultListLimit = 25
	maxListLimit     = 100
)

// CursorStore persists the last processed update offset across restarts.
type CursorStore interface {
	GetString(ctx context.Context, key string) (string, bool, error)
	SetString(ctx context.Context, key, value string, ttl time.Duration) error
}

// Loop is the single-threaded long-poll consumer: fetch a batch of updates,
// handle them in order, advance the durable cursor, repeat.
type Loop struct {
	tg           TelegramClient
	digest       usecase.DigestUsecase
	cursor       CursorStore
	allowed      map[int64]struct{}
	defaultLimit int
	seedOffset   int64
	logger       *log.Logger
}

func NewLoop(
	tg TelegramClient,
	digest usecase.DigestUsecase,
	cursor CursorStore,
	allowedChatIDs string,
	defaultLimit int,
	seedOffset int64,
	logger *log.Logger,
) *Loop {
	if defaultLimit < 1 || defaultLimit > maxListLimit {
		defaultLimit = defaultListLimit
	}
	return &Loop{
		tg:           tg,
		digest:       digest,
		cursor:       cursor,
		allowed:      parseAllowedChatIDs(allowedChatIDs),
		defaultLimit: defaultLimit,
		seedOffset:   seedOffset,
		logger:       logger,
	}
}

func parseAllowedChatIDs(raw string) map[int64]struct{} {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	out := map[int64]struct{}{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		out[id] = struct{}{}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (l *Loop) Run(ctx context.Context) error {
	offset := l.loadOffset(ctx)
	if l.logger != nil {
		l.logger.Printf("[Bot] polling started offset=%d limit=%d", offset, l.defaultLimit)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		updates, err := l.tg.GetUpdates(ctx, offset, pollTimeoutSecs)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if l.logger != nil {
				l.logger.Printf("[Bot] getUpdates failed: %v", err)
			}
			time.Sleep(pollRetryDelay)
			continue
		}

		for _, u := range updates {
			if u.UpdateID+1 > offset {
				offset = u.UpdateID + 1
			}
			l.handleUpdate(ctx, u)
		}

		if len(updates) > 0 {
			l.saveOffset(ctx, offset)
		}
	}
}

func (l *Loop) loadOffset(ctx context.Context) int64 {
	offset := l.seedOffset
	if l.cursor == nil {
		return offset
	}
	v, ok, err := l.cursor.GetString(ctx, cursorKey)
	if err != nil || !ok {
		return offset
	}
	stored, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return offset
	}
	if stored > offset {
		offset = stored
	}
	return offset
}

func (l *Loop) saveOffset(ctx context.Context, offset int64) {
	if l.cursor == nil {
		return
	}
	if err := l.cursor.SetString(ctx, cursorKey, strconv.FormatInt(offset, 10), 0); err != nil && l.logger != nil {
		l.logger.Printf("[Bot] cursor save failed: %v", err)
	}
}

func (l *Loop) handleUpdate(ctx context.Context, u Update) {
	msg := u.Message
	if msg == nil || strings.TrimSpace(msg.Text) == "" {
		return
	}

	chatID := msg.Chat.ID
	if l.allowed != nil {
		if _, ok := l.allowed[chatID]; !ok {
			return
		}
	}

	fields := strings.Fields(strings.TrimSpace(msg.Text))
	if len(fields) == 0 {
		return
	}
	// Commands in groups arrive as /cmd@botname.
	cmd := strings.SplitN(fields[0], "@", 2)[0]

	switch cmd {
	case "/help":
		l.send(ctx, chatID, helpMessage())
	case "/chatid":
		l.send(ctx, chatID, fmt.Sprintf("Chat ID: <code>%d</code>", chatID))
	case "/computer":
		limit := parseLimitArg(fields, l.defaultLimit)
		jobs, err := l.digest.ListComputerJobs(ctx, limit)
		l.respondDigest(ctx, chatID, "Computer jobs", jobs, err)
	case "/dataentry":
		limit := parseLimitArg(fields, l.defaultLimit)
		jobs, err := l.digest.ListDataEntryJobs(ctx, limit)
		l.respondDigest(ctx, chatID, "Data entry jobs", jobs, err)
	case "/jobs":
		limit := parseLimitArg(fields, l.defaultLimit)
		jobs, err := l.digest.ListActiveJobs(ctx, limit)
		l.respondDigest(ctx, chatID, "All jobs", jobs, err)
	case "/expiring":
		days := parseDaysArg(fields)
		jobs, err := l.digest.ListExpiringJobs(ctx, days)
		l.respondDigest(ctx, chatID, fmt.Sprintf("Jobs expiring in %d days", days), jobs, err)
	}
}

func (l *Loop) respondDigest(ctx context.Context, chatID int64, title string, jobs []repository.Job, err error) {
	if err != nil {
		if l.logger != nil {
			l.logger.Printf("[Bot] digest query failed: %v", err)
		}
		l.send(ctx, chatID, "Something went wrong, try again later.")
		return
	}
	if len(jobs) == 0 {
		l.send(ctx, chatID, fmt.Sprintf("<b>%s</b>: 0 active", escapeHTML(title)))
		return
	}

	items := l.digest.AttachDetails(ctx, jobs)
	lastSync, err := l.digest.LastSyncFinishedAt(ctx)
	if err != nil && l.logger != nil {
		l.logger.Printf("[Bot] last sync lookup failed: %v", err)
	}

	for _, m := range buildDigestMessages(title, items, lastSync) {
		l.send(ctx, chatID, m)
	}
}

func (l *Loop) send(ctx context.Context, chatID int64, html string) {
	if err := l.tg.SendMessage(ctx, chatID, html); err != nil && l.logger != nil {
		l.logger.Printf("[Bot] sendMessage failed chat=%d: %v", chatID, err)
	}
}

func parseLimitArg(fields []string, def int) int {
	if len(fields) < 2 {
		return def
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return def
	}
	if n < 1 {
		return 1
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}

func parseDaysArg(fields []string) int {
	if len(fields) < 2 {
		return 7
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 1 {
		return 7
	}
	if n > 30 {
		return 30
	}
	return n
}

func helpMessage() string {
	return strings.Join([]string{
		"<b>JobMirror bot</b>",
		"",
		"Commands:",
		"<code>/jobs</code> List all active jobs",
		"<code>/jobs 10</code> List first 10 jobs",
		"<code>/expiring</code> Jobs expiring in 7 days",
		"<code>/expiring 3</code> Jobs expiring in 3 days",
		"<code>/computer</code> List active computer jobs",
		"<code>/computer 10</code> List first 10",
		"<code>/dataentry</code> List active data entry jobs",
		"<code>/dataentry 10</code> List first 10",
		"<code>/chatid</code> Show this chat id",
	}, "\n")
}
