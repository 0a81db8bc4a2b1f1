package usecase

import (
	"bytes"
	"text/template"

	"github.com/shandysiswandi/otpgate/internal/notification/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
)

var defaultTemplates = map[entity.TemplateKey]entity.Template{
	entity.TemplateKeyEmailVerification: {
		Subject: "Verify your email for {{.product}}",
		Email:   "Hi {{.name}},\n\nYour {{.product}} email verification code is {{.code}}.\nIt expires in {{.expiry}}.\n\nIf you did not request this, you can ignore this email.",
		SMS:     "{{.product}}: your email verification code is {{.code}}. Expires in {{.expiry}}.",
	},
	entity.TemplateKeyPhoneVerification: {
		Subject: "Verify your phone for {{.product}}",
		Email:   "Hi {{.name}},\n\nYour {{.product}} phone verification code is {{.code}}.\nIt expires in {{.expiry}}.",
		SMS:     "{{.product}}: your verification code is {{.code}}. Expires in {{.expiry}}.",
	},
	entity.TemplateKeyPasswordReset: {
		Subject: "Reset your {{.product}} password",
		Email:   "Hi {{.name}},\n\nUse code {{.code}} to reset your {{.product}} password.\nIt expires in {{.expiry}}.\n\nIf you did not ask for a reset, secure your account.",
		SMS:     "{{.product}}: your password reset code is {{.code}}. Expires in {{.expiry}}. Do not share it.",
	},
	entity.TemplateKeyTwoFactorAuth: {
		Subject: "Your {{.product}} sign-in code",
		Email:   "Hi {{.name}},\n\nYour {{.product}} sign-in code is {{.code}}.\nIt expires in {{.expiry}}.",
		SMS:     "{{.product}}: your sign-in code is {{.code}}. Expires in {{.expiry}}. Do not share it.",
	},
	entity.TemplateKeyDefault: {
		Subject: "Your {{.product}} verification code",
		Email:   "Hi {{.name}},\n\nYour {{.product}} verification code is {{.code}}.\nIt expires in {{.expiry}}.",
		SMS:     "{{.product}}: your code is {{.code}}. Expires in {{.expiry}}.",
	},
}

// loadTemplates overlays modules.notification.templates.<key>.{subject,email,sms} on the defaults.
func loadTemplates(cfg config.Config) map[entity.TemplateKey]entity.Template {
	out := make(map[entity.TemplateKey]entity.Template, len(defaultTemplates))
	for key, tpl := range defaultTemplates {
		if cfg != nil {
			prefix := "modules.notification.templates." + key.String() + "."
			if v := cfg.GetString(prefix + "subject"); v != "" {
				tpl.Subject = v
			}
			if v := cfg.GetString(prefix + "email"); v != "" {
				tpl.Email = v
			}
			if v := cfg.GetString(prefix + "sms"); v != "" {
				tpl.SMS = v
			}
		}
		out[key] = tpl
	}
	return out
}

func (s *Usecase) template(key entity.TemplateKey) entity.Template {
	if tpl, ok := s.templates[key]; ok {
		return tpl
	}
	return s.templates[entity.TemplateKeyDefault]
}

func renderTemplate(name, tpl string, data map[string]any) (string, error) {
	t, err := template.New(name).Option("missingkey=zero").Parse(tpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}
