/*
Package pkl implements the public-key login: a two step Diffie-Hellman
challenge-response exchange that authenticates a user's login key and
opens an authorized session.

Start

The client names the user. The server looks up the user's login public
key, computes a DH shared key with a fresh ephemeral key pair, and
encrypts a random session key with it. The client receives the
ciphertext without its authentication tag; the server keeps the tag.

Complete

The client recovers the session key and sends it back encrypted under
itself, with the challenge nonce advanced oddly. If it matches, the
session is authorized and the server releases the tag, which lets the
client authenticate the server in turn.

From then on both sides encrypt with the session key: the server on
even nonce offsets, the client on odd ones.
*/
package pkl
