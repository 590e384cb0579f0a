package models

// Document is the plain text of one input, ready to be tokenized into a shard.
type Document struct {
	Source string `yaml:"source" json:"source"`
	Title  string `yaml:"title,omitempty" json:"title,omitempty"`
	Text   string `yaml:"-" json:"-"`
}
