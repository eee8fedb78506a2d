package mapper

import "github.com/felixgeelhaar/backlog/internal/schema"

// Epic maps epic content. Its description is copied verbatim and it carries
// no parent link.
type Epic struct {
	Options Options
}

// Map implements Mapper. parentKey is ignored.
func (m Epic) Map(content map[string]any, fields *schema.FieldSet, accountID, projectKey, _ string) (Payload, error) {
	b := newBuild("epic", content, fields, false)
	b.inject(accountID, projectKey)
	return b.finish(m.Options)
}

// Story maps story content and links it to its epic.
type Story struct {
	Options Options
}

// Map implements Mapper. The parent link uses the "Epic Link" field when the
// schema exposes one, otherwise the generic parent relation.
func (m Story) Map(content map[string]any, fields *schema.FieldSet, accountID, projectKey, parentKey string) (Payload, error) {
	b := newBuild("story", content, fields, true)
	b.inject(accountID, projectKey)

	if parentKey != "" {
		if link, ok := fields.Lookup(fieldEpicLink); ok {
			b.payload[link.RemoteID] = parentKey
		} else {
			b.setParent(parentKey)
		}
	}

	if points, ok := fields.Lookup(fieldStoryPoints); ok && points.Required {
		if _, set := b.payload[points.RemoteID]; !set {
			value, found := b.lookup[storyPointsKey]
			if !found || value == nil {
				value = 1
			}
			b.payload[points.RemoteID] = value
			b.copied[points.RemoteID] = true
		}
	}

	return b.finish(m.Options)
}

// Task maps task content. Tasks are sub-task shaped and always link to their
// story through the generic parent relation.
type Task struct {
	Options Options
}

// Map implements Mapper.
func (m Task) Map(content map[string]any, fields *schema.FieldSet, accountID, projectKey, parentKey string) (Payload, error) {
	b := newBuild("task", content, fields, true)
	b.inject(accountID, projectKey)
	b.setParent(parentKey)
	return b.finish(m.Options)
}
