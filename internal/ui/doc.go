// Package ui renders xbeectl output in the terminal with Lipgloss.
//
// Components follow a "render once and print" pattern:
//
//   - Header: command banner showing what the command is connected to
//   - Result: success/failure boxes, e.g. for an AT command response
//   - RenderPacket: a box listing the fields of one packet
//   - FormatPacketLine / FormatErrorLine: one-line entries for the monitor stream
//   - ConfirmOperation: a warning box and typed confirmation for AT commands
//     that change persistent module state
//
// # Logging Integration
//
// Logging is controlled via the XBEE_LOG_LEVEL environment variable or the
// --log-level flag. When unset, zap logging is silent, allowing the curated
// UI output to be displayed cleanly.
package ui
