// Package credentials persists the access and refresh tokens issued by the audit service.
package credentials
