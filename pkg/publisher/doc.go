// Package publisher defines how a captioned image leaves the bot.
//
// The X client in artbot/pkg/twitter implements Publisher; DryRun stands in
// for it when nothing should be posted.
package publisher
