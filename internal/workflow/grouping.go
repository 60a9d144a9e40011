package workflow

import (
	"strings"

	"github.com/temirov/auditdesk/internal/apiclient"
)

// CategoryGroup is a run of checklist items under one heading. Header is the marker item that
// opened the group; it is nil for explicit categories and for the leading untitled group.
type CategoryGroup struct {
	Title  string
	Header *apiclient.ChecklistItem
	Items  []apiclient.ChecklistItem
}

// Size counts the header and the items of the group.
func (group CategoryGroup) Size() int {
	if group.Header != nil {
		return len(group.Items) + 1
	}
	return len(group.Items)
}

// GroupByCategory splits items into ordered groups. Explicit category fields win when any
// item carries one; otherwise an item whose text starts with markerPrefix opens a new group.
// Items before the first marker form a leading untitled group, so no item is dropped.
func GroupByCategory(items []apiclient.ChecklistItem, markerPrefix string) []CategoryGroup {
	if len(items) == 0 {
		return nil
	}
	if hasExplicitCategories(items) {
		return groupByExplicitCategory(items)
	}
	return groupByMarker(items, markerPrefix)
}

func hasExplicitCategories(items []apiclient.ChecklistItem) bool {
	for _, item := range items {
		if len(strings.TrimSpace(item.Category)) > 0 {
			return true
		}
	}
	return false
}

func groupByExplicitCategory(items []apiclient.ChecklistItem) []CategoryGroup {
	groups := make([]CategoryGroup, 0)
	for _, item := range items {
		title := strings.TrimSpace(item.Category)
		if len(groups) == 0 || groups[len(groups)-1].Title != title {
			groups = append(groups, CategoryGroup{Title: title})
		}
		lastGroup := &groups[len(groups)-1]
		lastGroup.Items = append(lastGroup.Items, item)
	}
	return groups
}

func groupByMarker(items []apiclient.ChecklistItem, markerPrefix string) []CategoryGroup {
	trimmedPrefix := strings.TrimSpace(markerPrefix)
	if len(trimmedPrefix) == 0 {
		trimmedPrefix = defaultCategoryMarkerPrefixConstant
	}

	groups := make([]CategoryGroup, 0)
	for _, item := range items {
		if strings.HasPrefix(strings.TrimSpace(item.Item), trimmedPrefix) {
			header := item
			groups = append(groups, CategoryGroup{Title: strings.TrimSpace(item.Item), Header: &header})
			continue
		}
		if len(groups) == 0 {
			groups = append(groups, CategoryGroup{})
		}
		lastGroup := &groups[len(groups)-1]
		lastGroup.Items = append(lastGroup.Items, item)
	}
	return groups
}
