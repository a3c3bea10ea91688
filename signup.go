// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
)

type signupRequest struct {
	Name                 string `json:"name" validate:"required,max=255"`
	Email                string `json:"email" validate:"required,email,max=255"`
	Phone                string `json:"phone" validate:"required,number,min=8,max=15"`
	Password             string `json:"password" validate:"required,min=8,maxbytes=72"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
}

type signupResponse struct {
	Account *accountResponse `json:"account"`
	Token   string           `json:"token"`
}

// fieldErrors maps a JSON field name to what's wrong with it.
type fieldErrors map[string][]string

func (fe fieldErrors) add(field, msg string) {
	fe[field] = append(fe[field], msg)
}

type validationErrorResponse struct {
	Error  string      `json:"error"`
	Fields fieldErrors `json:"fields"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report fields by their json names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// bcrypt limits are in bytes, "max" counts runes
	v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(fl.Field().String()) <= limit
	})
	return v
}

// checkSignup validates a signupRequest returning every problem found.
// An empty result means req is valid.
func checkSignup(req signupRequest) fieldErrors {
	out := make(fieldErrors)
	err := validate.Struct(req)
	if err == nil {
		return out
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out.add("request", "is invalid")
		return out
	}
	for _, e := range verrs {
		out.add(e.Field(), fieldMessage(e))
	}
	return out
}

func fieldMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "number":
		return "must contain only digits"
	case "eqfield":
		return "does not match password"
	case "min":
		if e.Field() == "phone" {
			return fmt.Sprintf("must be at least %s digits", e.Param())
		}
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		if e.Field() == "phone" {
			return fmt.Sprintf("must be at most %s digits", e.Param())
		}
		return fmt.Sprintf("must be at most %s characters", e.Param())
	case "maxbytes":
		return fmt.Sprintf("must be at most %s bytes", e.Param())
	default:
		return "is invalid"
	}
}

func rejectSignup(w http.ResponseWriter, fields fieldErrors) {
	authFailures.With("method", "register").Add(1)
	writeJSON(w, http.StatusBadRequest, validationErrorResponse{
		Error:  "validation failed",
		Fields: fields,
	})
}

func addRegisterRoutes(router *mux.Router, svc *authService) {
	router.Methods("POST").Path("/register").HandlerFunc(signupRoute(svc))
}

func signupRoute(svc *authService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var signup signupRequest
		if err := decodeJSON(r, &signup); err != nil {
			encodeError(w, http.StatusBadRequest, err)
			return
		}
		signup.Name = strings.TrimSpace(signup.Name)
		signup.Email = normalizeEmail(signup.Email)
		signup.Phone = strings.TrimSpace(signup.Phone)

		if fields := checkSignup(signup); len(fields) > 0 {
			rejectSignup(w, fields)
			return
		}

		ctx := r.Context()
		if _, err := svc.accounts.lookupByEmail(ctx, signup.Email); err == nil {
			rejectSignup(w, fieldErrors{"email": {"has already been taken"}})
			return
		} else if !errors.Is(err, errAccountNotFound) {
			internalError(svc.logger, w, err, "register", "could not create account")
			return
		}

		hash, err := svc.hasher.hash(signup.Password)
		if err != nil {
			if errors.Is(err, bcrypt.ErrPasswordTooLong) {
				rejectSignup(w, fieldErrors{"password": {"must be at most 72 bytes"}})
				return
			}
			internalError(svc.logger, w, err, "register", "could not create account")
			return
		}

		account := &Account{
			ID:           generateID(),
			Name:         signup.Name,
			Email:        signup.Email,
			Phone:        signup.Phone,
			PasswordHash: hash,
			Role:         defaultRole,
			CreatedAt:    time.Now().UTC(),
		}
		if err := svc.accounts.create(ctx, account); err != nil {
			// lost a race with another registration for this email
			if errors.Is(err, errDuplicateEmail) {
				rejectSignup(w, fieldErrors{"email": {"has already been taken"}})
				return
			}
			internalError(svc.logger, w, err, "register", "could not create account")
			return
		}
		svc.logger.Log("register", fmt.Sprintf("created account %s", account.ID))

		token, _, err := svc.tokens.issue(account)
		if err != nil {
			internalError(svc.logger, w, err, "register", "could not create token")
			return
		}
		tokenGenerations.With("method", "register").Add(1)

		if err := writeJSON(w, http.StatusCreated, signupResponse{
			Account: account.response(),
			Token:   token,
		}); err != nil {
			svc.logger.Log("register", err)
		}
	}
}
