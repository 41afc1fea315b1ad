package vanilla

// ChromeClass is a semantic CSS class of the form chrome.
type ChromeClass string

const (
	ClassForm     ChromeClass = "form"
	ClassHeader   ChromeClass = "header"
	ClassTabs     ChromeClass = "tabs"
	ClassSection  ChromeClass = "section"
	ClassFieldset ChromeClass = "fieldset"
	ClassGuidance ChromeClass = "guidance"
	ClassActions  ChromeClass = "actions"
	ClassErrors   ChromeClass = "errors"
	ClassPending  ChromeClass = "pending"
)

func defaultClasses() map[ChromeClass]string {
	return map[ChromeClass]string{
		ClassForm:     "propform-form",
		ClassHeader:   "propform-header",
		ClassTabs:     "propform-tabs",
		ClassSection:  "propform-section",
		ClassFieldset: "propform-fieldset",
		ClassGuidance: "propform-guidance",
		ClassActions:  "propform-actions",
		ClassErrors:   "propform-errors",
		ClassPending:  "propform-pending",
	}
}
