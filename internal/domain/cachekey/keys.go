// Package cachekey formats the cache keys shared by the service and its
// consumers. Keys are built once, at the point of use.
package cachekey

import (
	"fmt"

	"github.com/oksasatya/account-service/internal/domain/entity"
)

const (
	accountPattern        = "account:%s"
	accountByEmailPattern = "account:email:%s"
	rateLimitPattern      = "ratelimit:%s:%s"
)

// Account is the by-id entry: account:{id}.
func Account(id string) string { return fmt.Sprintf(accountPattern, id) }

// AccountByEmail is the by-email entry: account:email:{email}. The address is
// normalized so lookups stay case-insensitive.
func AccountByEmail(email string) string {
	return fmt.Sprintf(accountByEmailPattern, entity.NormalizeEmail(email))
}

// RateLimit is a fixed-window counter: ratelimit:{scope}:{subject}.
func RateLimit(scope, subject string) string {
	return fmt.Sprintf(rateLimitPattern, scope, subject)
}
