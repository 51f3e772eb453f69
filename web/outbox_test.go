package web

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pictodon/pictodon/domain"
)

func TestParsePageParam(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"1", 1},
		{"7", 7},
		{"0", 0},
		{"-3", 0},
		{"abc", 0},
	}

	for _, tt := range tests {
		if got := ParsePageParam(tt.input); got != tt.want {
			t.Errorf("ParsePageParam(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestBuildOutboxCollection(t *testing.T) {
	conf := testConf("example.com")

	result := BuildOutboxCollection("alice", conf, 34)

	var collection map[string]any
	if err := json.Unmarshal([]byte(result), &collection); err != nil {
		t.Fatalf("Failed to parse JSON: %v", err)
	}

	if collection["type"] != "OrderedCollection" {
		t.Errorf("Expected type OrderedCollection, got: %v", collection["type"])
	}
	if collection["id"] != "https://example.com/users/alice/outbox" {
		t.Errorf("Unexpected id: %v", collection["id"])
	}
	if int(collection["totalItems"].(float64)) != 34 {
		t.Errorf("Expected totalItems 34, got: %v", collection["totalItems"])
	}
	if collection["first"] != "https://example.com/users/alice/outbox?page=1" {
		t.Errorf("Unexpected first: %v", collection["first"])
	}
}

func outboxTestAccount() *domain.Account {
	return &domain.Account{
		Id:       uuid.New(),
		Username: "alice",
	}
}

func outboxTestStatus(account *domain.Account, content string) domain.Status {
	statusId := uuid.New()
	return domain.Status{
		Id:          statusId,
		AccountId:   account.Id,
		Content:     content,
		Visibility:  domain.VisibilityPublic,
		ObjectURI:   fmt.Sprintf("https://example.com/statuses/%s", statusId),
		ActivityURI: fmt.Sprintf("https://example.com/statuses/%s/activity", statusId),
		Local:       true,
		CreatedAt:   time.Now(),
	}
}

func TestBuildOutboxPage(t *testing.T) {
	conf := testConf("example.com")
	account := outboxTestAccount()
	statuses := []domain.Status{
		outboxTestStatus(account, "first post"),
		outboxTestStatus(account, "second post"),
	}

	result := BuildOutboxPage("alice", conf, account, statuses, 1, 2)

	var page map[string]any
	if err := json.Unmarshal([]byte(result), &page); err != nil {
		t.Fatalf("Failed to parse JSON: %v", err)
	}

	if page["type"] != "OrderedCollectionPage" {
		t.Errorf("Expected type OrderedCollectionPage, got: %v", page["type"])
	}
	if page["partOf"] != "https://example.com/users/alice/outbox" {
		t.Errorf("Unexpected partOf: %v", page["partOf"])
	}
	if _, exists := page["next"]; exists {
		t.Error("Expected no next link on the last page")
	}

	items, ok := page["orderedItems"].([]any)
	if !ok {
		t.Fatal("Expected orderedItems array")
	}
	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got: %d", len(items))
	}

	first, ok := items[0].(map[string]any)
	if !ok {
		t.Fatal("Expected activity object")
	}
	if first["type"] != "Create" {
		t.Errorf("Expected Create activity, got: %v", first["type"])
	}
	if first["id"] != statuses[0].ActivityURI {
		t.Errorf("Unexpected activity id: %v", first["id"])
	}
	if first["actor"] != "https://example.com/users/alice" {
		t.Errorf("Unexpected actor: %v", first["actor"])
	}

	note, ok := first["object"].(map[string]any)
	if !ok {
		t.Fatal("Expected embedded Note object")
	}
	if note["type"] != "Note" {
		t.Errorf("Expected Note object, got: %v", note["type"])
	}
	if note["id"] != statuses[0].ObjectURI {
		t.Errorf("Unexpected note id: %v", note["id"])
	}
	if note["content"] != "first post" {
		t.Errorf("Unexpected content: %v", note["content"])
	}
}

func TestBuildOutboxPagePagination(t *testing.T) {
	conf := testConf("example.com")
	account := outboxTestAccount()

	// 45 total items across three pages of 20
	result := BuildOutboxPage("alice", conf, account, nil, 2, 45)

	var page map[string]any
	if err := json.Unmarshal([]byte(result), &page); err != nil {
		t.Fatalf("Failed to parse JSON: %v", err)
	}

	if page["next"] != "https://example.com/users/alice/outbox?page=3" {
		t.Errorf("Unexpected next: %v", page["next"])
	}
	if page["prev"] != "https://example.com/users/alice/outbox?page=1" {
		t.Errorf("Unexpected prev: %v", page["prev"])
	}
}
