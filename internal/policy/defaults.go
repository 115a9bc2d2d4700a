package policy

// Defaults returns the shipped policy table. Entries are already
// lowercase. Topics intentionally default to empty: the topic list is
// specific to whatever the operator is soliciting and must be configured.
func Defaults() *Table {
	return &Table{
		BlockedDomains: []string{
			// version control / CI
			"github.com",
			"gitlab.com",
			"bitbucket.org",
			"circleci.com",
			"travis-ci.com",
			// payments
			"stripe.com",
			"paypal.com",
			"coinbase.com",
			// marketing / bulk senders
			"mailchimp.com",
			"sendgrid.net",
			"mailgun.org",
			"substack.com",
			// social networks
			"facebookmail.com",
			"linkedin.com",
			"twitter.com",
			"x.com",
			"redditmail.com",
			"discord.com",
			// cloud infra
			"amazonaws.com",
			"heroku.com",
			"digitalocean.com",
			"cloudflare.com",
			"netlify.com",
			"vercel.com",
			"atlassian.com",
			"npmjs.com",
			"docker.com",
		},
		AutoPrefixes: []string{
			"noreply",
			"no-reply",
			"no_reply",
			"donotreply",
			"do-not-reply",
			"notifications",
			"notification",
			"notify",
			"support",
			"billing",
			"invoice",
			"admin",
			"info",
			"news",
			"newsletter",
			"marketing",
			"alerts",
			"alert",
			"security",
			"mailer-daemon",
			"postmaster",
			"bounce",
			"bounces",
		},
		SubjectPhrases: []string{
			"workflow run",
			"run failed",
			"build failed",
			"deploy failed",
			"mailbox does not exist",
			"address not found",
			"delivery status notification",
			"undeliverable",
			"returned mail",
			"out of office",
			"automatic reply",
			"auto-reply",
			"autoreply",
			"auto reply",
			"unsubscribe",
			"verify your email",
			"confirm your email",
			"password reset",
			"security alert",
			"your receipt",
			"your invoice",
			"payment received",
		},
		BodyPhrases: []string{
			"this is an automated response",
			"this is an automated message",
			"this is an automated email",
			"automated notification",
			"do not reply to this email",
			"do not reply to this message",
			"this mailbox is not monitored",
			"this inbox is not monitored",
			"delivery has failed",
			"message could not be delivered",
		},
		AutomationKeywords: []string{
			"noreply",
			"notification",
			"workflow",
			"alert",
			"receipt",
			"newsletter",
			"unsubscribe",
		},
		Topics:            []string{},
		ClassifyBodyBytes: 2000,
	}
}
