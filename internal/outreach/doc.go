// Package outreach defines the venue and job model shared by the outreach
// pipeline together with the repository contracts and the small policies
// (review decision, locale handling) that every subsystem agrees on.
package outreach
