// Package policy decides, per resource and action, whether an actor may act.
// Policies are pure predicates over (actor, resource) composed with boolean
// combinators and looked up per action in a Ruleset.
package policy

import (
	"github.com/mobashi/surv/core/survey"
	"github.com/mobashi/surv/core/user"
)

type Action string

const (
	ActionAdd    Action = "add"
	ActionChange Action = "change"
	ActionDelete Action = "delete"
	ActionView   Action = "view"

	ActionAddSchool    Action = "add_school"
	ActionRemoveSchool Action = "remove_school"
)

// A Predicate reports whether usr may act on obj. usr is nil for anonymous
// requests; obj is nil for collection-level checks.
type Predicate func(usr *user.User, obj interface{}) bool

func (p Predicate) Or(others ...Predicate) Predicate {
	return func(usr *user.User, obj interface{}) bool {
		if p(usr, obj) {
			return true
		}
		for _, other := range others {
			if other(usr, obj) {
				return true
			}
		}
		return false
	}
}

func (p Predicate) And(others ...Predicate) Predicate {
	return func(usr *user.User, obj interface{}) bool {
		if !p(usr, obj) {
			return false
		}
		for _, other := range others {
			if !other(usr, obj) {
				return false
			}
		}
		return true
	}
}

func (p Predicate) Not() Predicate {
	return func(usr *user.User, obj interface{}) bool { return !p(usr, obj) }
}

func AlwaysAllow(*user.User, interface{}) bool { return true }

func IsSuperuser(usr *user.User, _ interface{}) bool {
	return usr != nil && usr.IsSuperuser
}

func IsAdminMember(usr *user.User, _ interface{}) bool {
	return usr != nil && usr.IsAdmin()
}

// IsSurveyOwner holds when obj is a survey owned by usr. False for anonymous
// requesters and non-survey objects.
func IsSurveyOwner(usr *user.User, obj interface{}) bool {
	if usr == nil {
		return false
	}
	switch s := obj.(type) {
	case survey.Survey:
		return s.UserID == usr.ID
	case *survey.Survey:
		return s != nil && s.UserID == usr.ID
	default:
		return false
	}
}

// A Ruleset maps actions to the predicate governing them. Unknown actions are
// denied.
type Ruleset map[Action]Predicate

func (rs Ruleset) Can(action Action, usr *user.User, obj interface{}) bool {
	p, ok := rs[action]
	if !ok {
		return false
	}
	return p(usr, obj)
}

var (
	adminOnly = Predicate(IsAdminMember)

	School = Ruleset{
		ActionAdd:    adminOnly,
		ActionChange: adminOnly,
		ActionDelete: adminOnly,
		ActionView:   adminOnly,
	}

	Campaign = Ruleset{
		ActionAdd:          adminOnly,
		ActionChange:       adminOnly,
		ActionDelete:       adminOnly,
		ActionView:         adminOnly,
		ActionAddSchool:    adminOnly,
		ActionRemoveSchool: adminOnly,
	}

	Cascho = Ruleset{
		ActionAdd:    adminOnly,
		ActionChange: adminOnly,
		ActionDelete: adminOnly,
		ActionView:   adminOnly,
	}

	// survey creation is self-service via intake; reads and writes belong to
	// the owner or an admin, deletion to admins alone
	Survey = Ruleset{
		ActionAdd:    AlwaysAllow,
		ActionChange: adminOnly.Or(IsSurveyOwner),
		ActionDelete: adminOnly,
		ActionView:   adminOnly.Or(IsSurveyOwner),
	}
)
