package provider

import (
	"github.com/lysyi3m/card-comb/app/transport"
)

// Handle is one connected provider interface. It is immutable once built.
type Handle struct {
	Kind       Kind
	Interface  string // advertised tag, kept for logging when Kind is unknown
	OwnerID    string
	BusName    string
	SearchPath string
	AppID      string
	Conn       transport.Conn
}

type Descriptor struct {
	Name                string   `yaml:"name" json:"name"`
	Endpoint            string   `yaml:"endpoint" json:"endpoint"`
	Interfaces          []string `yaml:"interfaces" json:"interfaces"`
	KnowledgeAppID      string   `yaml:"knowledge_app_id" json:"knowledge_app_id,omitempty"`
	KnowledgeSearchPath string   `yaml:"knowledge_search_path" json:"knowledge_search_path,omitempty"`
	Enabled             bool     `yaml:"enabled" json:"enabled"`
	Timeout             int      `yaml:"timeout" json:"timeout"` // seconds

	File string `yaml:"-" json:"file"`
}
