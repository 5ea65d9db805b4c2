package service

import "fmt"

func magicLinkEmailTemplate(magicURL, appName string) (string, string) {
	subject := fmt.Sprintf("Sign in to %s", appName)
	body := fmt.Sprintf(`Click this link to sign in to your account:
%s

This link expires in 15 minutes and can only be used once.

If you didn't request this, ignore this email.

Best,
The %s Team`, magicURL, appName)

	return subject, body
}

func welcomeEmailTemplate(name, dashboardURL, appName string) (string, string) {
	if name == "" {
		name = "there"
	}
	subject := fmt.Sprintf("Welcome to %s!", appName)
	body := fmt.Sprintf(`Hi %s,

Your account is ready. Add your first listing, define custom fields for your
property types and share upload links with owners who want to send you photos.

Get started: %s

Best,
The %s Team`, name, dashboardURL, appName)

	return subject, body
}

func uploadTokenUsedEmailTemplate(name, tokenLabel, propertyTitle, propertyURL, appName string) (string, string) {
	if name == "" {
		name = "there"
	}
	if tokenLabel == "" {
		tokenLabel = "one of your upload links"
	}
	subject := fmt.Sprintf("New listing received: %s", propertyTitle)
	body := fmt.Sprintf(`Hi %s,

A new listing "%s" was submitted through %s.

Review it here: %s

Best,
The %s Team`, name, propertyTitle, tokenLabel, propertyURL, appName)

	return subject, body
}

func accountDeletedEmailTemplate(name, appName string) (string, string) {
	if name == "" {
		name = "there"
	}
	subject := fmt.Sprintf("Your %s account has been deleted", appName)
	body := fmt.Sprintf(`Hi %s,

Your account has been permanently deleted from %s.

All your listings, photos, upload links and settings have been removed from our systems.

If you didn't request this deletion, please contact our support team immediately, though we won't be able to recover your account.

Best,
The %s Team`, name, appName, appName)

	return subject, body
}
