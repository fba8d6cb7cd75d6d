package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shareguard/shareguard/pkg/change"
)

// changeData is the wire shape of a "change" notification's data field:
// {change_id, change_type, previous_state, current_state, detected_time,
// folder, summary, changes}. ShareGuard fans out one notification per
// changed path covering every category in a ChangeSet at once, unlike the
// per-atomic-change notifications the system this was modeled on sends, so
// change_type is a synthesized "most significant category" rather than a
// single atomic change's own type.
type changeData struct {
	ChangeID      string            `json:"change_id"`
	ChangeType    change.ChangeType `json:"change_type"`
	PreviousState map[string]any    `json:"previous_state,omitempty"`
	CurrentState  map[string]any    `json:"current_state,omitempty"`
	DetectedTime  string            `json:"detected_time"`
	Folder        changeFolder      `json:"folder"`
	Summary       changeSummary     `json:"summary"`
	Changes       []changeItem      `json:"changes"`
}

type changeFolder struct {
	Name     string `json:"name"`
	FullPath string `json:"full_path"`
}

type changeSummary struct {
	ChangesDetected int    `json:"changes_detected"`
	SeverityLevel   string `json:"severity_level"`
}

type changeItem struct {
	Type          change.ChangeType `json:"type"`
	Icon          string            `json:"icon"`
	Description   string            `json:"description"`
	UsersAffected []string          `json:"users_affected,omitempty"`
	Impact        string            `json:"impact,omitempty"`
}

// Path satisfies pathOf's pather interface, so PathPrefixes filters keep
// matching change notifications the same way they did before.
func (d changeData) Path() string { return d.Folder.FullPath }

// changeTypePriority orders categories from most to least significant, used
// to pick the single change_type a ChangeSet's notification reports.
var changeTypePriority = []change.ChangeType{
	change.ChangeOwnerChanged,
	change.ChangePermissionRemoved,
	change.ChangeInheritanceChanged,
	change.ChangePermissionModified,
	change.ChangePermissionAdded,
}

var changeTypeIcons = map[change.ChangeType]string{
	change.ChangeOwnerChanged:       "user",
	change.ChangeInheritanceChanged: "link",
	change.ChangePermissionAdded:    "plus-circle",
	change.ChangePermissionRemoved:  "minus-circle",
	change.ChangePermissionModified: "edit",
}

func primaryChangeType(cs *change.ChangeSet) change.ChangeType {
	for _, t := range changeTypePriority {
		switch t {
		case change.ChangeOwnerChanged:
			if cs.OwnerChanged != nil {
				return t
			}
		case change.ChangePermissionRemoved:
			if len(cs.PermissionsRemoved) > 0 {
				return t
			}
		case change.ChangeInheritanceChanged:
			if cs.InheritanceChanged != nil {
				return t
			}
		case change.ChangePermissionModified:
			if len(cs.PermissionsModified) > 0 {
				return t
			}
		case change.ChangePermissionAdded:
			if len(cs.PermissionsAdded) > 0 {
				return t
			}
		}
	}
	return ""
}

// newChangeData renders cs into the documented wire shape. previous/current
// state are best-effort: they carry whatever before/after fields the
// ChangeSet itself tracks (owner name, inheritance flag), not a full
// snapshot diff.
func newChangeData(pathName string, cs *change.ChangeSet, severity change.Severity, summary change.Summary) changeData {
	d := changeData{
		ChangeID:     uuid.NewString(),
		ChangeType:   primaryChangeType(cs),
		DetectedTime: nowISO8601(),
		Folder: changeFolder{
			Name:     summary.Folder,
			FullPath: pathName,
		},
		Summary: changeSummary{
			ChangesDetected: len(summary.Items),
			SeverityLevel:   string(severity),
		},
	}

	if cs.OwnerChanged != nil {
		d.PreviousState = map[string]any{"owner": cs.OwnerChanged.OldFullName}
		d.CurrentState = map[string]any{"owner": cs.OwnerChanged.NewFullName}
	}
	if cs.InheritanceChanged != nil {
		if d.PreviousState == nil {
			d.PreviousState = map[string]any{}
			d.CurrentState = map[string]any{}
		}
		d.PreviousState["inheritance_enabled"] = cs.InheritanceChanged.Old
		d.CurrentState["inheritance_enabled"] = cs.InheritanceChanged.New
	}

	for _, item := range summary.Items {
		d.Changes = append(d.Changes, changeItem{
			Type:          item.Type,
			Icon:          changeTypeIcons[item.Type],
			Description:   item.Description,
			UsersAffected: item.Affected,
			Impact:        summary.Impact,
		})
	}

	return d
}

func changeTitle(folder string, severity change.Severity) string {
	return fmt.Sprintf("ACL change detected in %s (%s)", folder, severity)
}

func changeText(summary change.Summary) string {
	if len(summary.Lines) == 0 {
		return "no significant changes"
	}
	return strings.Join(summary.Lines, "; ")
}

func nowISO8601() string {
	return time.Now().UTC().Format(time.RFC3339)
}
