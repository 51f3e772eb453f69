package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pictodon/pictodon/db"
	"github.com/pictodon/pictodon/domain"
	"github.com/pictodon/pictodon/util"
)

const publicAudience = "https://www.w3.org/ns/activitystreams#Public"

// BuildStatusObject renders a local status as an ActivityPub Note.
func BuildStatusObject(status *domain.Status, account *domain.Account, attachments []domain.Attachment, conf *util.AppConfig) map[string]any {
	domainName := conf.Conf.Domain
	actorURI := getIRI(domainName, account.Username, id)

	note := map[string]any{
		"id":           status.ObjectURI,
		"type":         "Note",
		"attributedTo": actorURI,
		"content":      util.MarkdownLinksToHTML(status.Content),
		"mediaType":    "text/html",
		"published":    status.CreatedAt.UTC().Format(time.RFC3339),
		"to":           []string{publicAudience},
		"cc":           []string{getIRI(domainName, account.Username, followers)},
	}

	if status.Sensitive {
		note["sensitive"] = true
		note["summary"] = status.ContentWarning
	}
	if status.InReplyToURI != "" {
		note["inReplyTo"] = status.InReplyToURI
	}
	if status.UpdatedAt != nil {
		note["updated"] = status.UpdatedAt.UTC().Format(time.RFC3339)
	}

	if len(attachments) > 0 {
		docs := make([]map[string]any, 0, len(attachments))
		for _, att := range attachments {
			docs = append(docs, map[string]any{
				"type":      "Document",
				"mediaType": att.MediaType,
				"url":       att.URL,
				"name":      att.Description,
			})
		}
		note["attachment"] = docs
	}

	return note
}

// GetStatusObject serves a single local public status as activity+json.
// Remote and non-public statuses are treated as not found.
func GetStatusObject(statusId uuid.UUID, conf *util.AppConfig) (error, string) {
	database := db.GetDB()

	err, status := database.ReadStatusById(statusId)
	if err != nil {
		return err, "{}"
	}
	if !status.Local || status.Visibility != domain.VisibilityPublic {
		return errors.New("status not publicly addressable"), "{}"
	}

	err, account := database.ReadAccById(status.AccountId)
	if err != nil {
		return err, "{}"
	}

	var attachments []domain.Attachment
	if err, atts := database.ReadAttachmentsByStatusId(status.Id); err == nil && atts != nil {
		attachments = *atts
	}

	note := BuildStatusObject(status, account, attachments, conf)
	note["@context"] = "https://www.w3.org/ns/activitystreams"

	jsonBytes, err := json.Marshal(note)
	if err != nil {
		return err, "{}"
	}
	return nil, string(jsonBytes)
}

// BuildCreateWrapper wraps a Note object in its Create activity for outbox
// pages.
func BuildCreateWrapper(status *domain.Status, account *domain.Account, note map[string]any, conf *util.AppConfig) map[string]any {
	domainName := conf.Conf.Domain
	activityURI := status.ActivityURI
	if activityURI == "" {
		activityURI = fmt.Sprintf("%s/activity", status.ObjectURI)
	}

	return map[string]any{
		"id":        activityURI,
		"type":      "Create",
		"actor":     getIRI(domainName, account.Username, id),
		"published": status.CreatedAt.UTC().Format(time.RFC3339),
		"to":        []string{publicAudience},
		"cc":        []string{getIRI(domainName, account.Username, followers)},
		"object":    note,
	}
}
