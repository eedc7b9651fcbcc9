package invite

import (
	"net/url"
	"strings"
)

// DefaultPublicURL is the base used for links when none is configured
const DefaultPublicURL = "http://localhost:1337"

// DefaultLinkUsername is placed in the link when the account has no username
const DefaultLinkUsername = "user"

// RegistrationLink builds the end user registration link. Values are
// query escaped.
func RegistrationLink(baseURL, credential, email, username string) string {
	if username == "" {
		username = DefaultLinkUsername
	}

	q := url.Values{}
	q.Set("confirmationToken", credential)
	q.Set("email", email)
	q.Set("username", username)

	return joinBase(baseURL, "/registration") + "?" + encodeOrdered(q, "confirmationToken", "email", "username")
}

// AdminRegistrationLink builds the admin panel registration link
func AdminRegistrationLink(baseURL, registrationToken string) string {
	q := url.Values{}
	q.Set("registrationToken", registrationToken)
	return joinBase(baseURL, "/admin/auth/register") + "?" + q.Encode()
}

func joinBase(baseURL, path string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = DefaultPublicURL
	}
	return base + path
}

// encodeOrdered encodes q with keys in the given order
func encodeOrdered(q url.Values, keys ...string) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(q.Get(k)))
	}
	return strings.Join(parts, "&")
}
