package web

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/feeds"
	"github.com/pictodon/pictodon/db"
	"github.com/pictodon/pictodon/domain"
	"github.com/pictodon/pictodon/util"
)

const rssFeedLimit = 50

// buildURL creates proper URLs based on whether a federation domain is
// configured.
func buildURL(conf *util.AppConfig, path string) string {
	if conf.Conf.Domain != "" {
		return fmt.Sprintf("https://%s%s", conf.Conf.Domain, path)
	}
	return fmt.Sprintf("http://%s:%d%s", conf.Conf.Host, conf.Conf.HttpPort, path)
}

// GetRSS renders an RSS feed of local public statuses. With a username it
// covers that account only, otherwise the whole instance.
func GetRSS(conf *util.AppConfig, username string) (string, error) {
	database := db.GetDB()

	var err error
	var statuses *[]domain.Status
	var title string
	var author string

	link := buildURL(conf, "/feed")

	if username != "" {
		err, statuses = database.ReadPublicStatusesByUsername(username, rssFeedLimit, 0)
		if err != nil {
			log.Printf("Could not get statuses from %s: %v", username, err)
			return "", errors.New("error retrieving statuses by username")
		}
		title = fmt.Sprintf("Pictodon - %s", username)
		author = username
		link = fmt.Sprintf("%s?username=%s", link, username)
	} else {
		err, statuses = database.ReadRecentLocalStatuses(rssFeedLimit)
		if err != nil {
			log.Printf("Could not get statuses: %v", err)
			return "", errors.New("error retrieving statuses")
		}
		title = "Pictodon - all posts"
		author = "everyone"
	}

	feed := &feeds.Feed{
		Title:       title,
		Link:        &feeds.Link{Href: link},
		Description: fmt.Sprintf("public posts on %s", conf.Conf.Domain),
		Author:      &feeds.Author{Name: author, Email: fmt.Sprintf("%s@%s", author, conf.Conf.Domain)},
		Created:     time.Now(),
	}

	// Resolve authors once per account for the instance-wide feed
	usernames := map[uuid.UUID]string{}
	resolveAuthor := func(accountId uuid.UUID) string {
		if name, ok := usernames[accountId]; ok {
			return name
		}
		name := author
		if err, acc := database.ReadAccById(accountId); err == nil && acc != nil {
			name = acc.Username
		}
		usernames[accountId] = name
		return name
	}

	var feedItems []*feeds.Item
	if statuses != nil {
		for _, status := range *statuses {
			// Skip replies, only include top-level posts
			if status.InReplyToURI != "" {
				continue
			}
			itemAuthor := resolveAuthor(status.AccountId)
			feedItems = append(feedItems, &feeds.Item{
				Id:      status.Id.String(),
				Title:   status.CreatedAt.Format(time.RFC1123),
				Link:    &feeds.Link{Href: buildURL(conf, fmt.Sprintf("/feed/%s", status.Id))},
				Content: util.MarkdownLinksToHTML(status.Content),
				Author:  &feeds.Author{Name: itemAuthor, Email: fmt.Sprintf("%s@%s", itemAuthor, conf.Conf.Domain)},
				Created: status.CreatedAt,
			})
		}
	}

	feed.Items = feedItems
	return feed.ToRss()
}

// GetRSSItem renders a single local public status as a one-item RSS feed.
func GetRSSItem(conf *util.AppConfig, statusId uuid.UUID) (string, error) {
	database := db.GetDB()

	err, status := database.ReadStatusById(statusId)
	if err != nil || status == nil {
		log.Printf("Could not get status %s: %v", statusId, err)
		return "", errors.New("error retrieving status by id")
	}
	if !status.Local || status.Visibility != domain.VisibilityPublic {
		return "", errors.New("status is not public")
	}

	author := "unknown"
	if err, acc := database.ReadAccById(status.AccountId); err == nil && acc != nil {
		author = acc.Username
	}

	url := buildURL(conf, fmt.Sprintf("/feed/%s", status.Id))

	feed := &feeds.Feed{
		Title:       "Pictodon - single post",
		Link:        &feeds.Link{Href: url},
		Description: fmt.Sprintf("public post on %s", conf.Conf.Domain),
		Author:      &feeds.Author{Name: author, Email: fmt.Sprintf("%s@%s", author, conf.Conf.Domain)},
		Created:     time.Now(),
	}

	feed.Items = []*feeds.Item{
		{
			Id:      status.Id.String(),
			Title:   status.CreatedAt.Format(time.RFC1123),
			Link:    &feeds.Link{Href: url},
			Content: util.MarkdownLinksToHTML(status.Content),
			Author:  &feeds.Author{Name: author, Email: fmt.Sprintf("%s@%s", author, conf.Conf.Domain)},
			Created: status.CreatedAt,
		},
	}

	return feed.ToRss()
}
