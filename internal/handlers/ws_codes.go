// internal/handlers/ws_codes.go
package handlers

// BadSubprotocolError is the close code sent when a client connects with
// an unsupported subprotocol. Codes 3000-3999 are free for application use.
const BadSubprotocolError = 3000
