// Package auth resolves "who is making this request and are they allowed"
// for the BookNook backend.
//
// Credentials:
//   - PasswordHasher hashes and verifies account passwords. BcryptHasher is the
//     default; Argon2idHasher produces PHC strings. MultiHasher verifies any
//     digest format it knows so switching algorithms does not lock accounts out.
//
// Tokens:
//   - TokenService encodes and decodes HS256 session tokens and admin tokens.
//     Admin tokens carry the is_admin claim and are only decoded strictly.
//   - Session tokens issued by an external identity provider can be accepted
//     through verified validators (shared HMAC secret or JWKS). Accepting
//     tokens without checking their signature is a separate, opt-in policy
//     (WithUnverifiedFallback) that is disabled unless configured.
//
// Identity:
//   - IdentityResolver turns a bearer token into a persisted Account and
//     provisions an Account the first time a valid subject is seen. Unique
//     conflicts during provisioning are resolved by re-reading the winner.
//   - Gate composes the resolver into RequireUser, RequireAdmin and
//     RequireAdminToken. Guards exposes them as go-router middleware, and
//     RegisterAuthRoutes and RegisterAdminRoutes mount the controllers on any
//     router.Router, in production the Fiber adapter.
//
// Activity sinks:
//   - ActivitySink receives login, provisioning and moderation events. The
//     AuditSink persists them into audit_logs. Sinks run best-effort.
package auth
