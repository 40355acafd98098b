// Package telegram is a minimal Telegram Bot API client.
//
// Only the three methods the tracker needs are implemented: getMe,
// sendMessage and getUpdates (long polling). Messages are sent with HTML
// parse mode.
package telegram
