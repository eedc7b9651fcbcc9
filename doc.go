// Package invite implements invitation gated registration.
//
// Accounts are created unconfirmed. An administrator issues an invitation,
// which stores a random confirmation credential on the account together with
// its issue time, appends an Invitation audit row and sends a registration
// link. The credential is valid for 24 hours and can be consumed once:
//
//	created --invite--> pending --confirm--> active
//	           ^   |
//	           +---+ re-invite replaces the credential
//
// Confirmation reads the pending account, checks the expiry and then performs
// a conditional write keyed on the credential. When two requests race on the
// same credential only one write matches a row; the other gets the same
// "invalid or expired" error a stale token would.
//
// Activity sinks:
//   - ActivitySink receives account.created, invitation.created,
//     registration.confirmed and admin.mirrored events. Sinks run best effort.
//   - AdminMirrorService is itself an ActivitySink. Register it on the
//     AccountService to provision an inactive admin identity for every new
//     account.
//
// Notifications go through a NotificationSink. Delivery failures never roll
// back persisted state and surface as warnings on the result.
package invite
