// Package feeds turns RSS and Atom feeds into raw publication lists that
// the merge step consumes alongside scraper output.
package feeds

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/pubenrich/internal/config"
	"github.com/sells-group/pubenrich/internal/fetcher"
	"github.com/sells-group/pubenrich/internal/model"
)

// Ingestor fetches and converts configured feeds.
type Ingestor struct {
	fetcher fetcher.Fetcher
	parser  *gofeed.Parser
}

// NewIngestor returns an Ingestor that downloads feeds through f.
func NewIngestor(f fetcher.Fetcher) *Ingestor {
	return &Ingestor{fetcher: f, parser: gofeed.NewParser()}
}

// Ingest downloads and converts one feed.
func (in *Ingestor) Ingest(ctx context.Context, cfg config.FeedConfig) ([]model.Publication, error) {
	body, err := in.fetcher.Fetch(ctx, cfg.URL)
	if err != nil {
		return nil, eris.Wrapf(err, "feeds: fetch %s", cfg.Name)
	}
	feed, err := in.parser.ParseString(body)
	if err != nil {
		return nil, eris.Wrapf(err, "feeds: parse %s", cfg.Name)
	}
	pubs := Convert(feed, cfg)
	zap.L().Info("feeds: ingested",
		zap.String("feed", cfg.Name),
		zap.Int("items", len(feed.Items)),
		zap.Int("records", len(pubs)),
	)
	return pubs, nil
}

// Convert maps feed items to publications: items without a link are
// dropped, types come from the feed config or keyword inference, excluded
// types are removed, and the result is sorted newest first and capped at
// cfg.MaxItems.
func Convert(feed *gofeed.Feed, cfg config.FeedConfig) []model.Publication {
	if feed == nil {
		return nil
	}
	source := cfg.Source
	if source == "" {
		source = strings.TrimSpace(feed.Title)
	}
	excluded := make(map[string]bool, len(cfg.ExcludeTypes))
	for _, t := range cfg.ExcludeTypes {
		excluded[strings.ToLower(strings.TrimSpace(t))] = true
	}

	var out []model.Publication
	for _, item := range feed.Items {
		if item == nil || strings.TrimSpace(item.Link) == "" {
			continue
		}
		typ := cfg.Type
		if typ == "" {
			typ = InferType(item.Title+" "+strings.Join(item.Categories, " "), cfg.TypeKeywords, cfg.DefaultType)
		}
		if excluded[strings.ToLower(typ)] {
			continue
		}

		p := model.Publication{
			URL:    strings.TrimSpace(item.Link),
			Title:  strings.TrimSpace(item.Title),
			Source: source,
			Date:   itemDate(item),
			Type:   typ,
		}
		if item.Author != nil {
			p.Author = strings.TrimSpace(item.Author.Name)
		}
		if len(item.Categories) > 0 {
			if b, err := json.Marshal(item.Categories); err == nil {
				p.Extra = map[string]json.RawMessage{"categorieen": b}
			}
		}
		out = append(out, p)
	}

	// ISO dates sort lexically; undated items go last.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date == "" || out[j].Date == "" {
			return out[j].Date == "" && out[i].Date != ""
		}
		return out[i].Date > out[j].Date
	})
	if cfg.MaxItems > 0 && len(out) > cfg.MaxItems {
		out = out[:cfg.MaxItems]
	}
	return out
}

func itemDate(item *gofeed.Item) string {
	switch {
	case item.PublishedParsed != nil:
		return item.PublishedParsed.Format(isoDate)
	case item.UpdatedParsed != nil:
		return item.UpdatedParsed.Format(isoDate)
	case item.Published != "":
		return ParseDate(item.Published)
	}
	return ParseDate(item.Updated)
}

// InferType returns the type mapped to the first keyword found in text.
// Longer keywords are tried first so "webinar verslag" beats "webinar".
// Without a match it returns def.
func InferType(text string, keywords map[string]string, def string) string {
	lower := strings.ToLower(text)
	keys := make([]string, 0, len(keywords))
	for k := range keywords {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		if k != "" && strings.Contains(lower, strings.ToLower(k)) {
			return keywords[k]
		}
	}
	return def
}
