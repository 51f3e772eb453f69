package web

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pictodon/pictodon/db"
	"github.com/pictodon/pictodon/domain"
	"github.com/pictodon/pictodon/util"
)

const outboxPageSize = 20

// ParsePageParam parses the ?page query parameter. Zero means the bare
// collection was requested.
func ParsePageParam(pageStr string) int {
	if pageStr == "" {
		return 0
	}
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		return 0
	}
	return page
}

// BuildOutboxCollection renders the outbox OrderedCollection envelope.
func BuildOutboxCollection(actor string, conf *util.AppConfig, totalItems int) string {
	collectionURI := getIRI(conf.Conf.Domain, actor, outbox)

	doc := map[string]any{
		"@context":   "https://www.w3.org/ns/activitystreams",
		"id":         collectionURI,
		"type":       "OrderedCollection",
		"totalItems": totalItems,
		"first":      fmt.Sprintf("%s?page=1", collectionURI),
	}

	jsonBytes, err := json.Marshal(doc)
	if err != nil {
		return "{}"
	}
	return string(jsonBytes)
}

// BuildOutboxPage renders one OrderedCollectionPage of Create activities.
func BuildOutboxPage(actor string, conf *util.AppConfig, account *domain.Account, statuses []domain.Status, page, totalItems int) string {
	collectionURI := getIRI(conf.Conf.Domain, actor, outbox)

	items := make([]map[string]any, 0, len(statuses))
	for i := range statuses {
		status := &statuses[i]
		note := BuildStatusObject(status, account, nil, conf)
		items = append(items, BuildCreateWrapper(status, account, note, conf))
	}

	doc := map[string]any{
		"@context":     "https://www.w3.org/ns/activitystreams",
		"id":           fmt.Sprintf("%s?page=%d", collectionURI, page),
		"type":         "OrderedCollectionPage",
		"partOf":       collectionURI,
		"orderedItems": items,
		"totalItems":   totalItems,
	}

	if totalItems > page*outboxPageSize {
		doc["next"] = fmt.Sprintf("%s?page=%d", collectionURI, page+1)
	}
	if page > 1 {
		doc["prev"] = fmt.Sprintf("%s?page=%d", collectionURI, page-1)
	}

	jsonBytes, err := json.Marshal(doc)
	if err != nil {
		return "{}"
	}
	return string(jsonBytes)
}

// GetOutbox serves the outbox for a local account. Page 0 returns the
// collection envelope, pages >= 1 return Create activities newest first.
func GetOutbox(actor string, page int, conf *util.AppConfig) (error, string) {
	database := db.GetDB()

	err, account := database.ReadAccByUsername(actor)
	if err != nil {
		return err, "{}"
	}

	totalItems, err := database.CountPublicStatusesByUsername(actor)
	if err != nil {
		return err, "{}"
	}

	if page == 0 {
		return nil, BuildOutboxCollection(actor, conf, totalItems)
	}

	offset := (page - 1) * outboxPageSize
	err, statuses := database.ReadPublicStatusesByUsername(actor, outboxPageSize, offset)
	if err != nil {
		return err, "{}"
	}

	var pageStatuses []domain.Status
	if statuses != nil {
		pageStatuses = *statuses
	}
	return nil, BuildOutboxPage(actor, conf, account, pageStatuses, page, totalItems)
}
