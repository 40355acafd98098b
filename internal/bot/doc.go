// Package bot serves Telegram commands over getUpdates long-polling:
// /start, /help, /status, /check and /stats. Commands read the tracker's
// committed state; only /check changes anything, and only by running a
// poll cycle early.
package bot
