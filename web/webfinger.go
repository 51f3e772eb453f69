package web

import (
	"encoding/json"
	"fmt"

	"github.com/pictodon/pictodon/db"
	"github.com/pictodon/pictodon/util"
)

// WebFingerResponse is the JRD document returned by /.well-known/webfinger.
type WebFingerResponse struct {
	Subject string          `json:"subject"`
	Aliases []string        `json:"aliases"`
	Links   []WebFingerLink `json:"links"`
}

type WebFingerLink struct {
	Rel  string `json:"rel"`
	Type string `json:"type,omitempty"`
	Href string `json:"href,omitempty"`
}

// BuildWebfinger renders the JRD document for a local username.
func BuildWebfinger(username string, conf *util.AppConfig) string {
	actorURI := getIRI(conf.Conf.Domain, username, id)

	resp := WebFingerResponse{
		Subject: fmt.Sprintf("acct:%s@%s", username, conf.Conf.Domain),
		Aliases: []string{actorURI},
		Links: []WebFingerLink{
			{
				Rel:  "self",
				Type: "application/activity+json",
				Href: actorURI,
			},
			{
				Rel:  "http://webfinger.net/rel/profile-page",
				Type: "text/html",
				Href: actorURI,
			},
		},
	}

	jsonBytes, err := json.Marshal(resp)
	if err != nil {
		return GetWebFingerNotFound()
	}
	return string(jsonBytes)
}

// GetWebfinger resolves a local username and renders its JRD document.
func GetWebfinger(username string, conf *util.AppConfig) (error, string) {
	if valid, _ := util.IsValidWebFingerUsername(username); !valid {
		return fmt.Errorf("invalid webfinger username %q", username), GetWebFingerNotFound()
	}

	err, acc := db.GetDB().ReadAccByUsername(username)
	if err != nil {
		return err, GetWebFingerNotFound()
	}
	return nil, BuildWebfinger(acc.Username, conf)
}

func GetWebFingerNotFound() string {
	return `{"error": "not found"}`
}
