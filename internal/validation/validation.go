package validation

import (
	"errors"
	"strings"
)

// ErrInvalid est la sentinelle commune à toutes les erreurs de validation
var ErrInvalid = errors.New("données invalides")

// Error liste les champs manquants et les problèmes détectés avant tout accès
// au store.
type Error struct {
	Missing  []string `json:"missing,omitempty"`
	Problems []string `json:"problems,omitempty"`
}

func (e *Error) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "champs manquants: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Problems) > 0 {
		parts = append(parts, strings.Join(e.Problems, "; "))
	}
	if len(parts) == 0 {
		return ErrInvalid.Error()
	}
	return ErrInvalid.Error() + " (" + strings.Join(parts, " | ") + ")"
}

func (e *Error) Is(target error) bool {
	return target == ErrInvalid
}

// Require ajoute field à la liste des manquants si value est vide
func (e *Error) Require(field, value string) {
	if strings.TrimSpace(value) == "" {
		e.Missing = append(e.Missing, field)
	}
}

func (e *Error) Add(problem string) {
	e.Problems = append(e.Problems, problem)
}

// Err retourne nil quand rien n'a été relevé
func (e *Error) Err() error {
	if len(e.Missing) == 0 && len(e.Problems) == 0 {
		return nil
	}
	return e
}

func Missing(fields ...string) error {
	return &Error{Missing: fields}
}

func Problem(problem string) error {
	return &Error{Problems: []string{problem}}
}

// From extrait l'erreur de validation d'une chaîne d'erreurs
func From(err error) (*Error, bool) {
	var verr *Error
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
