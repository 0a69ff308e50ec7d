/*
Package application is a library for building MailerId providers and
their clients.

application implements the pieces shared by the provider server and the
command-line client: logging, configuration, message encoding and the
network layer.

Encoding

This module implements the JSON and binary message encoding for
client-server communications over HTTP.

Logger

This module implements a generic logging system that can be used by any
MailerId application/executable.

ServerBase

This module provides the HTTP listeners, the background update loop and
graceful shutdown of a MailerId server.
*/
package application
