package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/clientkeeper/internal/client/client"
	"github.com/dmitrijs2005/clientkeeper/internal/common"
)

func (a *App) report(err error) error {
	switch {
	case errors.Is(err, client.ErrUnavailable):
		fmt.Fprintln(a.out, "Server unavailable, try again later")
	case errors.Is(err, common.ErrorNotConfirmed):
		fmt.Fprintln(a.out, "Account not confirmed yet, check your e-mail")
	default:
		fmt.Fprintf(a.out, "Error: %s\n", err.Error())
	}
	return err
}

func (a *App) Login(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return a.report(err)
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return a.report(err)
	}
	defer common.WipeByteArray(password)

	p, err := a.api.Login(ctx, email, password)
	if err != nil {
		return a.report(err)
	}
	a.userName = p.Email
	fmt.Fprintf(a.out, "Welcome, %s\n", displayName(p))
	return nil
}

func (a *App) Register(ctx context.Context) error {
	var in client.RegisterRequest
	var err error

	if in.Email, err = GetSimpleText(a.reader, "Enter email", a.out); err != nil {
		return a.report(err)
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return a.report(err)
	}
	in.Password = string(password)
	common.WipeByteArray(password)

	if in.FirstName, err = GetSimpleText(a.reader, "First name", a.out); err != nil {
		return a.report(err)
	}
	if in.LastName, err = GetSimpleText(a.reader, "Last name", a.out); err != nil {
		return a.report(err)
	}
	if in.Phone, err = GetSimpleText(a.reader, "Phone", a.out); err != nil {
		return a.report(err)
	}
	if in.BirthDate, err = GetSimpleText(a.reader, "Birth date (YYYY-MM-DD)", a.out); err != nil {
		return a.report(err)
	}
	city, err := GetSimpleText(a.reader, "City (empty to skip address)", a.out)
	if err != nil {
		return a.report(err)
	}
	if city != "" {
		zip, err := GetSimpleText(a.reader, "Zip code", a.out)
		if err != nil {
			return a.report(err)
		}
		street, err := GetSimpleText(a.reader, "Street", a.out)
		if err != nil {
			return a.report(err)
		}
		in.Address = &client.Address{City: city, ZipCode: zip, Street: street}
	}

	if _, err := a.api.Register(ctx, in); err != nil {
		return a.report(err)
	}
	fmt.Fprintln(a.out, "Registered. Follow the link in the confirmation e-mail, then login.")
	return nil
}

func (a *App) Me(ctx context.Context) error {
	p, err := a.api.Me(ctx)
	if err != nil {
		return a.report(err)
	}
	printProfile(a, p)
	return nil
}

func (a *App) List(ctx context.Context) error {
	list, err := a.api.List(ctx, 20, 0)
	if err != nil {
		return a.report(err)
	}
	for i := range list {
		fmt.Fprintf(a.out, "%d\t%s\t%s\n", list[i].ID, list[i].Email, displayName(&list[i]))
	}
	return nil
}

func (a *App) Update(ctx context.Context) error {
	var in client.UpdateRequest
	var err error

	if in.FirstName, err = GetOptional(a.reader, "First name", a.out); err != nil {
		return a.report(err)
	}
	if in.LastName, err = GetOptional(a.reader, "Last name", a.out); err != nil {
		return a.report(err)
	}
	if in.Phone, err = GetOptional(a.reader, "Phone", a.out); err != nil {
		return a.report(err)
	}
	if in.Email, err = GetOptional(a.reader, "Email", a.out); err != nil {
		return a.report(err)
	}

	p, err := a.api.Update(ctx, in)
	if err != nil {
		return a.report(err)
	}
	a.userName = p.Email
	fmt.Fprintln(a.out, "Profile updated")
	return nil
}

func (a *App) Passwd(ctx context.Context) error {
	password, err := GetPassword(a.out)
	if err != nil {
		return a.report(err)
	}
	s := string(password)
	common.WipeByteArray(password)

	if _, err := a.api.Update(ctx, client.UpdateRequest{Password: &s}); err != nil {
		return a.report(err)
	}
	fmt.Fprintln(a.out, "Password changed")
	return nil
}

func (a *App) Delete(ctx context.Context) error {
	answer, err := GetSimpleText(a.reader, "Type 'yes' to delete your account", a.out)
	if err != nil {
		return a.report(err)
	}
	if answer != "yes" {
		fmt.Fprintln(a.out, "Cancelled")
		return nil
	}
	if err := a.api.Delete(ctx); err != nil {
		return a.report(err)
	}
	a.userName = ""
	fmt.Fprintln(a.out, "Account deleted")
	return nil
}

func (a *App) Logout(context.Context) error {
	a.api.Logout()
	a.userName = ""
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func displayName(p *client.Profile) string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

func printProfile(a *App, p *client.Profile) {
	fmt.Fprintf(a.out, "ID:        %d\n", p.ID)
	fmt.Fprintf(a.out, "Email:     %s\n", p.Email)
	fmt.Fprintf(a.out, "Name:      %s\n", displayName(p))
	if p.Phone != "" {
		fmt.Fprintf(a.out, "Phone:     %s\n", p.Phone)
	}
	if p.BirthDate != "" {
		fmt.Fprintf(a.out, "Born:      %s\n", p.BirthDate)
	}
	if p.Avatar != "" {
		fmt.Fprintf(a.out, "Avatar:    %s\n", p.Avatar)
	}
	if p.Address != nil {
		fmt.Fprintf(a.out, "Address:   %s, %s %s\n", p.Address.Street, p.Address.ZipCode, p.Address.City)
	}
}
