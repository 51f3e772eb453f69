package web

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/pictodon/pictodon/db"
	"github.com/pictodon/pictodon/util"
)

// NodeInfo20 represents the NodeInfo 2.0 schema.
// See: https://nodeinfo.diaspora.software/schema.html
type NodeInfo20 struct {
	Version           string           `json:"version"`
	Software          NodeInfoSoftware `json:"software"`
	Protocols         []string         `json:"protocols"`
	Services          NodeInfoServices `json:"services"`
	Usage             NodeInfoUsage    `json:"usage"`
	OpenRegistrations bool             `json:"openRegistrations"`
	Metadata          NodeInfoMetadata `json:"metadata"`
}

type NodeInfoSoftware struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type NodeInfoServices struct {
	Inbound  []string `json:"inbound"`
	Outbound []string `json:"outbound"`
}

type NodeInfoUsage struct {
	Users      NodeInfoUsers `json:"users"`
	LocalPosts int           `json:"localPosts"`
}

type NodeInfoUsers struct {
	Total          int `json:"total"`
	ActiveMonth    int `json:"activeMonth"`
	ActiveHalfyear int `json:"activeHalfyear"`
}

type NodeInfoMetadata struct {
	NodeName        string `json:"nodeName"`
	NodeDescription string `json:"nodeDescription"`
}

// WellKnownNodeInfo represents the /.well-known/nodeinfo response.
type WellKnownNodeInfo struct {
	Links []NodeInfoLink `json:"links"`
}

type NodeInfoLink struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

// NodeStats holds the usage counters reported by NodeInfo.
type NodeStats struct {
	TotalUsers     int
	ActiveMonth    int
	ActiveHalfyear int
	LocalPosts     int
}

// CollectNodeStats gathers usage counters from the database. Failed counts
// are logged and reported as zero.
func CollectNodeStats() NodeStats {
	database := db.GetDB()
	var stats NodeStats
	var err error

	if stats.TotalUsers, err = database.CountAccounts(); err != nil {
		log.Printf("Failed to count accounts: %v", err)
	}
	if stats.LocalPosts, err = database.CountLocalStatuses(); err != nil {
		log.Printf("Failed to count local statuses: %v", err)
	}
	if stats.ActiveMonth, err = database.CountActiveUsersMonth(); err != nil {
		log.Printf("Failed to count active users (month): %v", err)
	}
	if stats.ActiveHalfyear, err = database.CountActiveUsersHalfYear(); err != nil {
		log.Printf("Failed to count active users (half year): %v", err)
	}
	return stats
}

// BuildNodeInfo20 renders a NodeInfo 2.0 JSON document.
func BuildNodeInfo20(conf *util.AppConfig, stats NodeStats) string {
	nodeInfo := NodeInfo20{
		Version: "2.0",
		Software: NodeInfoSoftware{
			Name:    util.Name,
			Version: util.GetVersion(),
		},
		Protocols: []string{"activitypub"},
		Services: NodeInfoServices{
			Inbound:  []string{},
			Outbound: []string{},
		},
		Usage: NodeInfoUsage{
			Users: NodeInfoUsers{
				Total:          stats.TotalUsers,
				ActiveMonth:    stats.ActiveMonth,
				ActiveHalfyear: stats.ActiveHalfyear,
			},
			LocalPosts: stats.LocalPosts,
		},
		OpenRegistrations: conf.Conf.OpenReg,
		Metadata: NodeInfoMetadata{
			NodeName:        "Pictodon",
			NodeDescription: "A federated microblog",
		},
	}

	jsonBytes, err := json.Marshal(nodeInfo)
	if err != nil {
		log.Printf("Failed to marshal nodeinfo: %v", err)
		return "{}"
	}
	return string(jsonBytes)
}

// GetNodeInfo20 returns the NodeInfo 2.0 document with live statistics.
func GetNodeInfo20(conf *util.AppConfig) string {
	return BuildNodeInfo20(conf, CollectNodeStats())
}

// GetWellKnownNodeInfo returns the /.well-known/nodeinfo discovery document.
func GetWellKnownNodeInfo(conf *util.AppConfig) string {
	wellKnown := WellKnownNodeInfo{
		Links: []NodeInfoLink{
			{
				Rel:  "http://nodeinfo.diaspora.software/ns/schema/2.0",
				Href: fmt.Sprintf("https://%s/nodeinfo/2.0", conf.Conf.Domain),
			},
		},
	}

	jsonBytes, err := json.Marshal(wellKnown)
	if err != nil {
		log.Printf("Failed to marshal well-known nodeinfo: %v", err)
		return "{}"
	}
	return string(jsonBytes)
}
