// Package school provides the domain model for school documents.
package school

import "errors"

// School is a document in the schools collection.
// Documents are inserted from arbitrary fields; Name and Topics are the
// fields the store queries on, everything else is kept in Extra.
type School struct {
	// ID is the document identifier assigned on insert.
	ID any `bson:"_id,omitempty" json:"id,omitempty"`
	// Name is the school name.
	Name string `bson:"name,omitempty" json:"name,omitempty"`
	// Topics lists the topics approached in the school.
	Topics []string `bson:"topics,omitempty" json:"topics,omitempty"`
	// Extra holds any other fields present on the document.
	Extra map[string]any `bson:",inline" json:"extra,omitempty"`
}

// HasTopic reports whether the school approaches topic.
func (s School) HasTopic(topic string) bool {
	for _, t := range s.Topics {
		if t == topic {
			return true
		}
	}
	return false
}

// Domain errors for school operations.
var (
	// ErrInvalidName is returned when an update targets an empty school name.
	ErrInvalidName = errors.New("invalid school name")
)
