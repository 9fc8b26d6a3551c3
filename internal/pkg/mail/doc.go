// Package mail sends email. SMTP is the production sender; Log writes the
// message to the structured log instead and is used when no SMTP host is
// configured.
package mail
