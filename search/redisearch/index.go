package redisearch

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/quillboard/taskapi/thing"
)

// EnsureIndexes creates the page and post indexes if they do not exist.
// Safe to call on every startup.
func (b *Backend) EnsureIndexes(ctx context.Context) error {
	err := b.client.FTCreate(ctx, pageIndex,
		&redis.FTCreateOptions{OnHash: true, Prefix: []any{pagePrefix}},
		&redis.FieldSchema{FieldName: "title", FieldType: redis.SearchFieldTypeText, Weight: 2},
		&redis.FieldSchema{FieldName: "body", FieldType: redis.SearchFieldTypeText},
		&redis.FieldSchema{FieldName: "category", FieldType: redis.SearchFieldTypeTag, Separator: ","},
		&redis.FieldSchema{FieldName: "tags", FieldType: redis.SearchFieldTypeTag, Separator: ","},
		&redis.FieldSchema{FieldName: "deleted", FieldType: redis.SearchFieldTypeTag},
	).Err()
	if err != nil && !indexExists(err) {
		return fmt.Errorf("redisearch: create %s: %w", pageIndex, err)
	}

	err = b.client.FTCreate(ctx, postIndex,
		&redis.FTCreateOptions{OnHash: true, Prefix: []any{postPrefix}},
		&redis.FieldSchema{FieldName: "body", FieldType: redis.SearchFieldTypeText},
		&redis.FieldSchema{FieldName: "page_id", FieldType: redis.SearchFieldTypeNumeric},
		&redis.FieldSchema{FieldName: "deleted", FieldType: redis.SearchFieldTypeTag},
	).Err()
	if err != nil && !indexExists(err) {
		return fmt.Errorf("redisearch: create %s: %w", postIndex, err)
	}
	return nil
}

// DropIndexes removes both indexes, keeping the documents. Used before a
// full rebuild with a changed schema.
func (b *Backend) DropIndexes(ctx context.Context) error {
	for _, index := range []string{pageIndex, postIndex} {
		if err := b.client.FTDropIndex(ctx, index).Err(); err != nil && !unknownIndex(err) {
			return fmt.Errorf("redisearch: drop %s: %w", index, err)
		}
	}
	return nil
}

// IndexPage mirrors one page into the index. body is the page's body post
// text; cat may be nil when the category is unknown.
func (b *Backend) IndexPage(ctx context.Context, p *thing.Page, body string, cat *thing.Category) error {
	fields := map[string]any{
		"title":     p.Title,
		"body":      body,
		"ref_id":    p.RefID,
		"url_path":  p.URLPath,
		"excerpt":   p.Excerpt,
		"author_id": strconv.FormatInt(p.AuthorID, 10),
		"category":  strings.Join(categoryTagValues(p.CategoryID, cat), ","),
		"tags":      strings.Join(p.Tags, ","),
		"deleted":   deletedTag(p.Deleted),
	}
	key := pagePrefix + strconv.FormatInt(p.ID, 10)
	if err := b.client.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("redisearch: index page %d: %w", p.ID, err)
	}
	return nil
}

// IndexPost mirrors one post into the index.
func (b *Backend) IndexPost(ctx context.Context, p *thing.Post) error {
	fields := map[string]any{
		"body":      p.BodyText,
		"page_id":   strconv.FormatInt(p.PageID, 10),
		"nr":        strconv.Itoa(p.Nr),
		"author_id": strconv.FormatInt(p.AuthorID, 10),
		"deleted":   deletedTag(p.Deleted),
	}
	key := postPrefix + strconv.FormatInt(p.ID, 10)
	if err := b.client.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("redisearch: index post %d: %w", p.ID, err)
	}
	return nil
}

// RemovePage drops a page from the index.
func (b *Backend) RemovePage(ctx context.Context, pageID int64) error {
	return b.client.Del(ctx, pagePrefix+strconv.FormatInt(pageID, 10)).Err()
}

// RemovePost drops a post from the index.
func (b *Backend) RemovePost(ctx context.Context, postID int64) error {
	return b.client.Del(ctx, postPrefix+strconv.FormatInt(postID, 10)).Err()
}

// categoryTagValues lists every reference form the category scope filter
// may arrive in.
func categoryTagValues(catID int64, cat *thing.Category) []string {
	vals := []string{strconv.FormatInt(catID, 10)}
	if cat != nil {
		if cat.RefID != "" {
			vals = append(vals, "refid:"+cat.RefID)
		}
		if cat.ExtID != "" {
			vals = append(vals, "extid:"+cat.ExtID)
		}
	}
	return vals
}

func deletedTag(deleted bool) string {
	if deleted {
		return "t"
	}
	return "f"
}

func indexExists(err error) bool {
	return err != nil && strings.Contains(err.Error(), "Index already exists")
}

func unknownIndex(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unknown index")
}
