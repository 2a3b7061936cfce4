package panel

import (
	"errors"

	"github.com/vasilisp/pagechat/internal/chat"
	"github.com/vasilisp/pagechat/internal/page"
)

const (
	MsgInvalidKey   = "The API key you entered doesn't seem to be valid. Could you double-check it in the field at the top?"
	MsgRateLimited  = "Too many requests. Please try again in a moment."
	MsgNetwork      = "Sorry, I can't reach the network right now, so I can't answer. Please try again in a moment."
	MsgInternalPage = "This is an internal browser page, so its content can't be read. Please try again on a regular web page."
	MsgNotLoaded    = "The page hasn't finished loading yet. Please reload the page and try again."
	MsgAccessDenied = "This page can't be accessed for security reasons. Please try another page."
	MsgExtraction   = "Something went wrong while reading the page. Please reload the page and try again."
	MsgEmptyPage    = "I couldn't find any text to summarize on this page. Would you like to try a page with more text?"
	MsgBlankKey     = "Please enter an API key."
	MsgSaveFailed   = "Saving the API key failed. Please try again."
	MsgUnknown      = "Something went wrong. Please try again."
)

func message(err error) string {
	switch chat.KindOf(err) {
	case chat.InvalidCredential:
		return MsgInvalidKey
	case chat.RateLimited:
		return MsgRateLimited
	case chat.RemoteFailure, chat.Unreachable:
		return MsgNetwork
	case chat.ExtractionUnavailable:
		switch {
		case errors.Is(err, page.ErrInternalPage):
			return MsgInternalPage
		case errors.Is(err, page.ErrNoListener):
			return MsgNotLoaded
		case errors.Is(err, page.ErrAccessDenied):
			return MsgAccessDenied
		default:
			return MsgExtraction
		}
	case chat.EmptyExtraction:
		return MsgEmptyPage
	case chat.StorageFailure:
		return MsgSaveFailed
	default:
		return MsgUnknown
	}
}
