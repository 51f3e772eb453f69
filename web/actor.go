package web

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/pictodon/pictodon/db"
	"github.com/pictodon/pictodon/domain"
	"github.com/pictodon/pictodon/util"
)

type action uint

const (
	id action = iota
	inbox
	outbox
	followers
	following
	sharedInbox
)

const followPageSize = 20

func getIRI(domainName string, username string, action action) string {
	prefix := fmt.Sprintf("https://%s/users/%s", domainName, username)
	switch action {
	case inbox:
		return fmt.Sprintf("%s/inbox", prefix)
	case outbox:
		return fmt.Sprintf("%s/outbox", prefix)
	case followers:
		return fmt.Sprintf("%s/followers", prefix)
	case following:
		return fmt.Sprintf("%s/following", prefix)
	case id:
		return prefix
	case sharedInbox:
		return fmt.Sprintf("https://%s/inbox", domainName)
	default:
		return ""
	}
}

// BuildActorDocument renders the ActivityPub Person document for a local
// account.
func BuildActorDocument(acc *domain.Account, conf *util.AppConfig) string {
	domainName := conf.Conf.Domain
	username := acc.Username

	displayName := acc.DisplayName
	if displayName == "" {
		displayName = username
	}

	actorDoc := map[string]any{
		"@context": []string{
			"https://www.w3.org/ns/activitystreams",
			"https://w3id.org/security/v1",
		},
		"id":                        getIRI(domainName, username, id),
		"type":                      "Person",
		"preferredUsername":         username,
		"name":                      displayName,
		"summary":                   acc.Summary,
		"inbox":                     getIRI(domainName, username, inbox),
		"outbox":                    getIRI(domainName, username, outbox),
		"followers":                 getIRI(domainName, username, followers),
		"following":                 getIRI(domainName, username, following),
		"url":                       getIRI(domainName, username, id),
		"manuallyApprovesFollowers": acc.ManualApproval,
		"discoverable":              true,
		"endpoints": map[string]any{
			"sharedInbox": getIRI(domainName, username, sharedInbox),
		},
		"publicKey": map[string]any{
			"id":           fmt.Sprintf("%s#main-key", getIRI(domainName, username, id)),
			"owner":        getIRI(domainName, username, id),
			"publicKeyPem": acc.WebPublicKey,
		},
	}

	if acc.AvatarURL != "" {
		actorDoc["icon"] = map[string]any{
			"type":      "Image",
			"mediaType": "image/png",
			"url":       acc.AvatarURL,
		}
	}

	jsonBytes, err := json.Marshal(actorDoc)
	if err != nil {
		return "{}"
	}
	return string(jsonBytes)
}

func GetActor(actor string, conf *util.AppConfig) (error, string) {
	err, acc := db.GetDB().ReadAccByUsername(actor)
	if err != nil {
		return err, "{}"
	}
	return nil, BuildActorDocument(acc, conf)
}

// GetFollowersCollection returns an ActivityPub OrderedCollection of followers.
// Always uses paging for compatibility with Mastodon and other servers.
func GetFollowersCollection(actor string, conf *util.AppConfig, followerURIs []string) string {
	return collection(fmt.Sprintf("https://%s/users/%s/followers", conf.Conf.Domain, actor), len(followerURIs))
}

// GetFollowingCollection returns an ActivityPub OrderedCollection of following.
func GetFollowingCollection(actor string, conf *util.AppConfig, followingURIs []string) string {
	return collection(fmt.Sprintf("https://%s/users/%s/following", conf.Conf.Domain, actor), len(followingURIs))
}

func collection(collectionURI string, totalItems int) string {
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

// GetFollowersPage returns an OrderedCollectionPage for followers.
func GetFollowersPage(actor string, conf *util.AppConfig, followerURIs []string, page int) string {
	return collectionPage(fmt.Sprintf("https://%s/users/%s/followers", conf.Conf.Domain, actor), followerURIs, page)
}

// GetFollowingPage returns an OrderedCollectionPage for following.
func GetFollowingPage(actor string, conf *util.AppConfig, followingURIs []string, page int) string {
	return collectionPage(fmt.Sprintf("https://%s/users/%s/following", conf.Conf.Domain, actor), followingURIs, page)
}

func collectionPage(collectionURI string, items []string, page int) string {
	totalItems := len(items)

	start := (page - 1) * followPageSize
	if start > totalItems {
		start = totalItems
	}
	end := start + followPageSize
	if end > totalItems {
		end = totalItems
	}

	doc := map[string]any{
		"@context":     "https://www.w3.org/ns/activitystreams",
		"id":           fmt.Sprintf("%s?page=%d", collectionURI, page),
		"type":         "OrderedCollectionPage",
		"partOf":       collectionURI,
		"orderedItems": items[start:end],
		"totalItems":   totalItems,
	}

	if totalItems > page*followPageSize {
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

// CollectFollowerURIs resolves the actor URIs of everyone following the
// given account. Follows referencing accounts that no longer resolve are
// skipped.
func CollectFollowerURIs(accountId uuid.UUID, conf *util.AppConfig) []string {
	return collectFollowURIs(accountId, conf, true)
}

// CollectFollowingURIs resolves the actor URIs the given account follows.
func CollectFollowingURIs(accountId uuid.UUID, conf *util.AppConfig) []string {
	return collectFollowURIs(accountId, conf, false)
}

func collectFollowURIs(accountId uuid.UUID, conf *util.AppConfig, wantFollowers bool) []string {
	database := db.GetDB()

	var err error
	var follows *[]domain.Follow
	if wantFollowers {
		err, follows = database.ReadFollowersByAccountId(accountId)
	} else {
		err, follows = database.ReadFollowingByAccountId(accountId)
	}
	if err != nil || follows == nil {
		return []string{}
	}

	uris := []string{}
	for _, follow := range *follows {
		otherId := follow.AccountId
		if !wantFollowers {
			otherId = follow.TargetAccountId
		}

		err, remoteActor := database.ReadRemoteAccountById(otherId)
		if err == nil && remoteActor != nil {
			uris = append(uris, remoteActor.ActorURI)
			continue
		}

		err, localAcc := database.ReadAccById(otherId)
		if err == nil && localAcc != nil {
			uris = append(uris, getIRI(conf.Conf.Domain, localAcc.Username, id))
		}
	}
	return uris
}
