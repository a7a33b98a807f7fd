package email

import (
	"context"
)

type Service interface {
	SendWelcome(ctx context.Context, to string, orgName string) error
	SendCustom(ctx context.Context, to string, subject string, content string) error
}
