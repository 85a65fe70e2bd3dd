// internal/domain/models/course.go
package models

import (
	"fmt"
	"strings"
	"time"
)

// CourseKey is the composite course identifier in "org/course/run" form.
type CourseKey string

// ParseCourseKey validates the "org/course/run" shape and returns the key.
func ParseCourseKey(s string) (CourseKey, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", fmt.Errorf("invalid course key %q (want org/course/run)", s)
	}
	return CourseKey(s), nil
}

// Org returns the organization component of the key.
func (k CourseKey) Org() string {
	parts := strings.SplitN(string(k), "/", 2)
	return parts[0]
}

func (k CourseKey) String() string { return string(k) }

// Course holds the per-course discussion settings this service reads.
// The canonical course record lives elsewhere; this collection carries
// only what the discussion layer needs.
type Course struct {
	ID  string `bson:"_id" json:"id"` // course key, "org/course/run"
	Org string `bson:"org" json:"org"`

	AllowAnonymous        bool   `bson:"allow_anonymous" json:"allow_anonymous"`
	AllowAnonymousToPeers bool   `bson:"allow_anonymous_to_peers" json:"allow_anonymous_to_peers"`
	DivisionScheme        string `bson:"division_scheme,omitempty" json:"division_scheme,omitempty"` // empty means no cohorting

	OnlyVerifiedUsersCanPost bool `bson:"only_verified_users_can_post" json:"only_verified_users_can_post"`
	EnableDiscussionBan      bool `bson:"enable_discussion_ban" json:"enable_discussion_ban"`
	CaptchaEnabled           bool `bson:"captcha_enabled" json:"captcha_enabled"`

	SpamURLDomains      []string `bson:"spam_url_domains,omitempty" json:"spam_url_domains,omitempty"`
	SpamReplacementBody string   `bson:"spam_replacement_body,omitempty" json:"spam_replacement_body,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Key returns the course's key.
func (c *Course) Key() CourseKey { return CourseKey(c.ID) }

// DivisionEnabled reports whether the course divides discussions by group.
func (c *Course) DivisionEnabled() bool { return c.DivisionScheme != "" }
