// Package response defines the JSON views returned by the HTTP handlers.
package response

import (
	"time"

	"accounts/internal/domain/entity"
	"accounts/internal/usecase"
)

// Account is the public view of an account. The password hash is never part of it.
type Account struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Token is the body of a successful login or refresh.
type Token struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Page is one page of accounts.
type Page struct {
	Items  []Account `json:"items"`
	Offset int       `json:"offset"`
	Limit  int       `json:"limit"`
}

// Status is the body of the health check.
type Status struct {
	Status string `json:"status"`
}

func NewAccount(account *entity.Account) Account {
	return Account{
		ID:        account.ID,
		Name:      account.Name,
		Email:     account.Email,
		Phone:     account.Phone,
		CreatedAt: account.CreatedAt,
		UpdatedAt: account.UpdatedAt,
	}
}

func NewToken(output *usecase.LoginOutput) Token {
	return Token{
		AccessToken:  output.AccessToken,
		TokenType:    output.TokenType,
		ExpiresIn:    output.ExpiresIn,
		RefreshToken: output.RefreshToken,
	}
}

// NewPage always renders items as an array, never null.
func NewPage(output *usecase.ListOutput) Page {
	items := make([]Account, 0, len(output.Items))
	for _, account := range output.Items {
		items = append(items, NewAccount(account))
	}

	return Page{
		Items:  items,
		Offset: output.Offset,
		Limit:  output.Limit,
	}
}
