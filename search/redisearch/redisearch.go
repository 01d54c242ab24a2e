// Package redisearch implements search.Backend on RediSearch via go-redis.
// Pages and posts are mirrored into Redis hashes and indexed with FT.CREATE;
// queries go through FT.SEARCH with scores enabled. The index is a replica
// of the store, not the source of truth — rebuilding it is always safe.
//
// Usage:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	b := redisearch.New(client)
//	if err := b.EnsureIndexes(ctx); err != nil { ... }
package redisearch

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/quillboard/taskapi"
	"github.com/quillboard/taskapi/ref"
	"github.com/quillboard/taskapi/search"
	"github.com/quillboard/taskapi/thing"
)

const (
	pageIndex  = "idx:taskapi:pages"
	postIndex  = "idx:taskapi:posts"
	pagePrefix = "taskapi:search:page:"
	postPrefix = "taskapi:search:post:"
)

// Compile-time interface check.
var _ search.Backend = (*Backend)(nil)

// Option configures the Backend.
type Option func(*Backend)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) { b.logger = l }
}

// Backend implements search.Backend on a RediSearch-enabled Redis.
type Backend struct {
	client redis.UniversalClient
	logger *slog.Logger
}

// New creates a RediSearch backend. The caller owns the Redis client
// lifecycle.
func New(client redis.UniversalClient, opts ...Option) *Backend {
	b := &Backend{client: client, logger: slog.Default()}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Client returns the underlying Redis client.
func (b *Backend) Client() redis.UniversalClient { return b.client }

// Ping verifies the Redis connection is alive.
func (b *Backend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Close is a no-op — the caller owns the Redis client lifecycle.
func (b *Backend) Close() error { return nil }

// Search runs one free-text query against the page or post index and maps
// the ranked documents back into things.
func (b *Backend) Search(ctx context.Context, q search.Query) ([]search.Hit, error) {
	index := pageIndex
	if q.Kind == thing.KindPosts {
		index = postIndex
	}

	query, err := b.buildQuery(q)
	if err != nil {
		return nil, err
	}

	res, err := b.client.FTSearchWithArgs(ctx, index, query, &redis.FTSearchOptions{
		WithScores:  true,
		LimitOffset: q.Offset,
		Limit:       q.Limit,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redisearch: %s: %w", index, err)
	}

	hits := make([]search.Hit, 0, len(res.Docs))
	for _, doc := range res.Docs {
		hit, err := b.docToHit(q, doc)
		if err != nil {
			b.logger.Warn("redisearch: skipping malformed document",
				slog.String("id", doc.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// buildQuery renders a search.Query as a RediSearch query string. Field
// scopes come from lookWhere; freetext terms are escaped so user input can
// never select fields or operators.
func (b *Backend) buildQuery(q search.Query) (string, error) {
	terms := escapeTerms(q.Freetext)
	if terms == "" {
		return "", fmt.Errorf("%w: empty freetext", taskapi.ErrLookupFailed)
	}

	var sb strings.Builder
	if q.Kind == thing.KindPages && q.Look.TitleText && !q.Look.PageText {
		sb.WriteString("@title:(" + terms + ")")
	} else {
		sb.WriteString("(" + terms + ")")
	}

	sb.WriteString(" @deleted:{f}")

	if q.Kind == thing.KindPages {
		if len(q.Look.InCategories) > 0 {
			sb.WriteString(" @category:{" + tagUnion(catScopeValues(q.Look.InCategories)) + "}")
		}
		if len(q.Look.WithTags) > 0 {
			sb.WriteString(" @tags:{" + tagUnion(q.Look.WithTags) + "}")
		}
	}
	return sb.String(), nil
}

// docToHit maps one indexed document back into a ranked hit.
func (b *Backend) docToHit(q search.Query, doc redis.Document) (search.Hit, error) {
	score := 0.0
	if doc.Score != nil {
		score = *doc.Score
	}

	switch q.Kind {
	case thing.KindPosts:
		post, err := postFromFields(doc.ID, doc.Fields)
		if err != nil {
			return search.Hit{}, err
		}
		return search.Hit{
			Thing:      post,
			Score:      score,
			Highlights: highlights(q.Freetext, doc.Fields["body"]),
		}, nil
	default:
		page, err := pageFromFields(doc.ID, doc.Fields)
		if err != nil {
			return search.Hit{}, err
		}
		frags := highlights(q.Freetext, doc.Fields["title"])
		frags = append(frags, highlights(q.Freetext, doc.Fields["body"])...)
		return search.Hit{Thing: page, Score: score, Highlights: frags}, nil
	}
}

func pageFromFields(docID string, f map[string]string) (*thing.Page, error) {
	id, err := docNum(docID, pagePrefix)
	if err != nil {
		return nil, err
	}
	p := &thing.Page{
		ID:      id,
		RefID:   f["ref_id"],
		Title:   f["title"],
		URLPath: f["url_path"],
		Excerpt: f["excerpt"],
	}
	p.AuthorID, _ = strconv.ParseInt(f["author_id"], 10, 64)  //nolint:errcheck // zero on absent field
	p.CategoryID, _ = strconv.ParseInt(f["category"], 10, 64) //nolint:errcheck // zero on absent field
	if f["tags"] != "" {
		p.Tags = strings.Split(f["tags"], ",")
	}
	return p, nil
}

func postFromFields(docID string, f map[string]string) (*thing.Post, error) {
	id, err := docNum(docID, postPrefix)
	if err != nil {
		return nil, err
	}
	p := &thing.Post{
		ID:       id,
		BodyText: f["body"],
	}
	p.PageID, _ = strconv.ParseInt(f["page_id"], 10, 64)  //nolint:errcheck // zero on absent field
	p.Nr, _ = strconv.Atoi(f["nr"])                       //nolint:errcheck // zero on absent field
	p.AuthorID, _ = strconv.ParseInt(f["author_id"], 10, 64) //nolint:errcheck // zero on absent field
	return p, nil
}

func docNum(docID, prefix string) (int64, error) {
	raw, ok := strings.CutPrefix(docID, prefix)
	if !ok {
		return 0, fmt.Errorf("redisearch: document key %q outside prefix %q", docID, prefix)
	}
	return strconv.ParseInt(raw, 10, 64)
}

// escapeTerms splits freetext into words and escapes RediSearch syntax
// characters in each, joining them back as an AND query.
func escapeTerms(freetext string) string {
	words := strings.Fields(freetext)
	escaped := make([]string, 0, len(words))
	for _, w := range words {
		var sb strings.Builder
		for _, r := range w {
			if strings.ContainsRune(`@!{}()|-=>[]":;/*~$%^&+`, r) {
				sb.WriteRune('\\')
			}
			sb.WriteRune(r)
		}
		if sb.Len() > 0 {
			escaped = append(escaped, sb.String())
		}
	}
	return strings.Join(escaped, " ")
}

// tagUnion renders scope values as a RediSearch TAG union, escaping the
// separator characters tags may legally contain.
func tagUnion(values []string) string {
	escaped := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ReplaceAll(v, `\`, `\\`)
		v = strings.ReplaceAll(v, "|", `\|`)
		v = strings.ReplaceAll(v, "}", `\}`)
		escaped = append(escaped, v)
	}
	return strings.Join(escaped, "|")
}

// highlights mirrors the in-memory backend: one fragment per matched term,
// a 60-char window around the first occurrence with <mark> markers.
func highlights(freetext, text string) []string {
	if text == "" {
		return nil
	}
	lower := strings.ToLower(text)
	var frags []string
	for _, term := range strings.Fields(strings.ToLower(freetext)) {
		i := strings.Index(lower, term)
		if i < 0 {
			continue
		}
		start := i - 30
		if start < 0 {
			start = 0
		}
		end := i + len(term) + 30
		if end > len(text) {
			end = len(text)
		}
		frags = append(frags,
			text[start:i]+"<mark>"+text[i:i+len(term)]+"</mark>"+text[i+len(term):end])
	}
	return frags
}

// catScopeValues renders category scope refs in every form the index
// stores, so refid: and extid: scopes match without a store lookup.
func catScopeValues(raws []string) []string {
	vals := make([]string, 0, len(raws))
	for _, raw := range raws {
		if r, err := ref.Parse(raw); err == nil && r.Namespace == ref.NsCatID {
			vals = append(vals, strconv.FormatInt(r.Num, 10))
			continue
		}
		vals = append(vals, raw)
	}
	return vals
}
