package youtube

import "github.com/PiotrWarzachowski/social-uploader/internal/browser"

// Studio DOM locators. These drift whenever YouTube ships a new Studio
// build; nothing outside this file and studio.go should reference them.
var (
	uploadIcon       = browser.CSS(`ytcp-icon-button#upload-icon`)
	videoFileInput   = browser.CSS(`input[type="file"]`)
	titleBox         = browser.CSS(`div#textbox[contenteditable="true"][aria-label*="title"]`)
	descriptionBox   = browser.CSS(`div#textbox[contenteditable="true"][aria-label*="Tell viewers"]`)
	thumbnailInput   = browser.CSS(`input[type="file"][accept*="image"]`)
	madeForKids      = browser.CSS(`tp-yt-paper-radio-button[name="VIDEO_MADE_FOR_KIDS_MFK"]`)
	notMadeForKids   = browser.CSS(`tp-yt-paper-radio-button[name="VIDEO_MADE_FOR_KIDS_NOT_MFK"]`)
	nextButton       = browser.CSS(`ytcp-button#next-button`)
	doneButton       = browser.CSS(`ytcp-button#done-button`)
	shareURL         = browser.CSS(`a#share-url`)
	challengeText    = browser.XPath(`//*[contains(text(), "Verify it's you")]`)
	challengeDismiss = browser.XPath(`//button[contains(., "Next")]`)
)

func privacyRadio(p Privacy) browser.Locator {
	var name string
	switch p {
	case PrivacyPublic:
		name = "PUBLIC"
	case PrivacyUnlisted:
		name = "UNLISTED"
	default:
		name = "PRIVATE"
	}
	return browser.CSS(`tp-yt-paper-radio-button[name="` + name + `"]`)
}

const googleAccountsHost = "accounts.google.com"
