package web

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pictodon/pictodon/domain"
)

func TestBuildStatusObject(t *testing.T) {
	conf := testConf("example.com")
	account := outboxTestAccount()
	status := outboxTestStatus(account, "hello fediverse")

	note := BuildStatusObject(&status, account, nil, conf)

	if note["type"] != "Note" {
		t.Errorf("Expected type Note, got: %v", note["type"])
	}
	if note["id"] != status.ObjectURI {
		t.Errorf("Unexpected id: %v", note["id"])
	}
	if note["attributedTo"] != "https://example.com/users/alice" {
		t.Errorf("Unexpected attributedTo: %v", note["attributedTo"])
	}

	to, ok := note["to"].([]string)
	if !ok || len(to) != 1 || to[0] != publicAudience {
		t.Errorf("Expected public addressing, got: %v", note["to"])
	}
	cc, ok := note["cc"].([]string)
	if !ok || len(cc) != 1 || cc[0] != "https://example.com/users/alice/followers" {
		t.Errorf("Expected followers cc, got: %v", note["cc"])
	}

	if _, exists := note["sensitive"]; exists {
		t.Error("Expected no sensitive flag")
	}
	if _, exists := note["inReplyTo"]; exists {
		t.Error("Expected no inReplyTo")
	}
	if _, exists := note["updated"]; exists {
		t.Error("Expected no updated timestamp")
	}
	if _, exists := note["attachment"]; exists {
		t.Error("Expected no attachments")
	}
}

func TestBuildStatusObjectEditedReply(t *testing.T) {
	conf := testConf("example.com")
	account := outboxTestAccount()
	status := outboxTestStatus(account, "spoiler inside")
	status.Sensitive = true
	status.ContentWarning = "spoilers"
	status.InReplyToURI = "https://remote.example.com/statuses/99"
	edited := time.Now().Add(-time.Hour)
	status.UpdatedAt = &edited

	note := BuildStatusObject(&status, account, nil, conf)

	if note["sensitive"] != true {
		t.Errorf("Expected sensitive true, got: %v", note["sensitive"])
	}
	if note["summary"] != "spoilers" {
		t.Errorf("Unexpected summary: %v", note["summary"])
	}
	if note["inReplyTo"] != status.InReplyToURI {
		t.Errorf("Unexpected inReplyTo: %v", note["inReplyTo"])
	}
	if note["updated"] != edited.UTC().Format(time.RFC3339) {
		t.Errorf("Unexpected updated: %v", note["updated"])
	}
}

func TestBuildStatusObjectAttachments(t *testing.T) {
	conf := testConf("example.com")
	account := outboxTestAccount()
	status := outboxTestStatus(account, "with media")
	attachments := []domain.Attachment{
		{
			Id:          uuid.New(),
			StatusId:    status.Id,
			URL:         "https://example.com/media/cat.png",
			MediaType:   "image/png",
			Description: "a cat",
		},
		{
			Id:        uuid.New(),
			StatusId:  status.Id,
			URL:       "https://example.com/media/dog.jpg",
			MediaType: "image/jpeg",
		},
	}

	note := BuildStatusObject(&status, account, attachments, conf)

	docs, ok := note["attachment"].([]map[string]any)
	if !ok {
		t.Fatal("Expected attachment list")
	}
	if len(docs) != 2 {
		t.Fatalf("Expected 2 attachments, got: %d", len(docs))
	}
	if docs[0]["type"] != "Document" {
		t.Errorf("Expected Document, got: %v", docs[0]["type"])
	}
	if docs[0]["url"] != "https://example.com/media/cat.png" {
		t.Errorf("Unexpected url: %v", docs[0]["url"])
	}
	if docs[0]["name"] != "a cat" {
		t.Errorf("Unexpected name: %v", docs[0]["name"])
	}
}

func TestBuildCreateWrapper(t *testing.T) {
	conf := testConf("example.com")
	account := outboxTestAccount()
	status := outboxTestStatus(account, "wrapped")

	note := BuildStatusObject(&status, account, nil, conf)
	create := BuildCreateWrapper(&status, account, note, conf)

	if create["type"] != "Create" {
		t.Errorf("Expected Create, got: %v", create["type"])
	}
	if create["id"] != status.ActivityURI {
		t.Errorf("Unexpected id: %v", create["id"])
	}
	if create["actor"] != "https://example.com/users/alice" {
		t.Errorf("Unexpected actor: %v", create["actor"])
	}
	if create["object"] == nil {
		t.Fatal("Expected embedded object")
	}
}

func TestBuildCreateWrapperSynthesizesActivityURI(t *testing.T) {
	conf := testConf("example.com")
	account := outboxTestAccount()
	status := outboxTestStatus(account, "old row without activity uri")
	status.ActivityURI = ""

	create := BuildCreateWrapper(&status, account, nil, conf)

	want := status.ObjectURI + "/activity"
	if create["id"] != want {
		t.Errorf("Expected synthesized id %s, got: %v", want, create["id"])
	}
}
