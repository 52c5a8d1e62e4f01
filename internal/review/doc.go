// Package review serves a cluster store over HTTP so a person can inspect
// clusters, label them with a category or screen ID, and merge clusters that
// show the same screen.
//
// Every mutation goes through the store, which persists before it commits.
// Store error kinds map onto HTTP status codes and are echoed in the body.
package review
