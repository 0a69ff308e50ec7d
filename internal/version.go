// Package internal holds build information shared by the executables.
package internal

// Version is the version of the MailerId executables.
var Version = "0.1.0"
