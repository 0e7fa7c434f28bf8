// Package service builds the API requests for each resource. Services hold no
// state: every call takes the caller's session and returns a normalized
// api.Result.
package service

import (
	"net/url"

	"github.com/luthenlog/luthen/pkg/api"
)

const publicPrefix = "/public"

// resourcePath returns /<resource>[/<id>], under /public in demo mode.
func resourcePath(s api.Session, resource, id string) string {
	p := "/" + resource
	if id != "" {
		p += "/" + url.PathEscape(id)
	}
	if s.Demo {
		p = publicPrefix + p
	}
	return p
}
