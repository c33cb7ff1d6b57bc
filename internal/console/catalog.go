package console

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/MarkoPoloResearchLab/frontdesk/internal/catalog"
)

const catalogRule = "--------------------"

// RunCatalog shows only the book catalog menu until the user leaves it or
// input ends.
func (session *Session) RunCatalog(ctx context.Context) error {
	return ignoreClosed(session.catalogMenu(ctx))
}

func (session *Session) catalogMenu(ctx context.Context) error {
	if session.desk.Books == nil {
		session.println("The book catalog is not configured.")
		return nil
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		session.println("Choose an option:")
		session.println("1. Add Book")
		session.println("2. List Books")
		session.println("3. Edit Book")
		session.println("4. Delete Book")
		session.println("5. Borrow Book")
		session.println("6. Return Book")
		session.println("7. Back")
		choice, err := session.prompt("Enter your choice: ")
		if err != nil {
			return err
		}
		switch choice {
		case "1":
			err = session.addBook(ctx)
		case "2":
			err = session.listBooks(ctx)
		case "3":
			err = session.editBook(ctx)
		case "4":
			err = session.deleteBook(ctx)
		case "5":
			err = session.borrowBook(ctx)
		case "6":
			err = session.returnBook(ctx)
		case "7":
			return nil
		default:
			session.println("Invalid choice, please try again.")
		}
		if err != nil {
			return err
		}
	}
}

func (session *Session) addBook(ctx context.Context) error {
	var input catalog.BookInput
	for _, field := range []struct {
		label  string
		target *string
	}{
		{label: "Enter book title: ", target: &input.Title},
		{label: "Enter book author: ", target: &input.Author},
		{label: "Enter ISBN (optional): ", target: &input.ISBN},
		{label: "Enter publication year: ", target: &input.Year},
		{label: "Enter book genre: ", target: &input.Genre},
	} {
		answer, err := session.prompt(field.label)
		if err != nil {
			return err
		}
		*field.target = answer
	}
	borrowed, err := session.promptYesNo("Is the book borrowed? (yes/no): ")
	if err != nil {
		return err
	}
	input.Borrowed = borrowed
	book, err := session.desk.Books.Add(ctx, input)
	if err != nil {
		return session.catalogFailure(err)
	}
	session.printf("Book '%s' added successfully!\n", book.Title)
	return session.listBooks(ctx)
}

func (session *Session) listBooks(ctx context.Context) error {
	books, err := session.desk.Books.List(ctx)
	if err != nil {
		return session.catalogFailure(err)
	}
	for index, book := range books {
		session.println(catalogRule)
		session.printf("Number: %d\n", index+1)
		session.printf("Title: %s\n", book.Title)
		session.printf("Author: %s\n", book.Author)
		if book.ISBN != "" {
			session.printf("ISBN: %s\n", book.ISBN)
		}
		session.printf("Year: %s\n", book.Year)
		session.printf("Genre: %s\n", book.Genre)
		session.printf("Borrowed: %s\n", yesNo(book.Borrowed))
	}
	session.println(catalogRule)
	return nil
}

func (session *Session) editBook(ctx context.Context) error {
	if err := session.listBooks(ctx); err != nil {
		return err
	}
	book, found, err := session.chooseBook(ctx, "Choose book number to edit: ", nil)
	if err != nil || !found {
		return err
	}
	session.println("Current details:")
	session.printf("1. Title: %s\n", book.Title)
	session.printf("2. Author: %s\n", book.Author)
	session.printf("3. Year: %s\n", book.Year)
	session.printf("4. Genre: %s\n", book.Genre)
	session.printf("5. Borrowed: %s\n", yesNo(book.Borrowed))
	session.printf("6. ISBN: %s\n", book.ISBN)
	detail, err := session.prompt("Choose which detail to update (1-6): ")
	if err != nil {
		return err
	}
	var patch catalog.BookPatch
	textFields := map[string]struct {
		label  string
		target **string
	}{
		"1": {label: "Enter new title: ", target: &patch.Title},
		"2": {label: "Enter new author: ", target: &patch.Author},
		"3": {label: "Enter new publication year: ", target: &patch.Year},
		"4": {label: "Enter new genre: ", target: &patch.Genre},
		"6": {label: "Enter new ISBN: ", target: &patch.ISBN},
	}
	if field, ok := textFields[detail]; ok {
		answer, err := session.prompt(field.label)
		if err != nil {
			return err
		}
		*field.target = &answer
	} else if detail == "5" {
		borrowed, err := session.promptYesNo("Is the book borrowed? (yes/no): ")
		if err != nil {
			return err
		}
		patch.Borrowed = &borrowed
	} else {
		session.println("Invalid choice, no changes made.")
		return nil
	}
	if _, err := session.desk.Books.Edit(ctx, book.ID, patch); err != nil {
		return session.catalogFailure(err)
	}
	session.println("Book updated successfully!")
	return nil
}

func (session *Session) deleteBook(ctx context.Context) error {
	if err := session.listBooks(ctx); err != nil {
		return err
	}
	book, found, err := session.chooseBook(ctx, "Choose book number to delete: ", nil)
	if err != nil || !found {
		return err
	}
	if err := session.desk.Books.Delete(ctx, book.ID); err != nil {
		return session.catalogFailure(err)
	}
	session.println("Book deleted successfully!")
	return nil
}

func (session *Session) borrowBook(ctx context.Context) error {
	book, found, err := session.chooseBook(ctx, "Enter book number: ", func(catalog.Book) bool { return true })
	if err != nil || !found {
		return err
	}
	receipt, err := session.desk.Books.Borrow(ctx, book.ID)
	if err != nil {
		return session.catalogFailure(err)
	}
	session.println(receipt.Message)
	return nil
}

func (session *Session) returnBook(ctx context.Context) error {
	books, err := session.desk.Books.List(ctx)
	if err != nil {
		return session.catalogFailure(err)
	}
	anyBorrowed := false
	for _, book := range books {
		anyBorrowed = anyBorrowed || book.Borrowed
	}
	if !anyBorrowed {
		session.println("No borrowed books found.")
		return nil
	}
	book, found, err := session.chooseBook(ctx, "Enter book number: ", func(book catalog.Book) bool { return book.Borrowed })
	if err != nil || !found {
		return err
	}
	receipt, err := session.desk.Books.Return(ctx, book.ID)
	if err != nil {
		return session.catalogFailure(err)
	}
	session.println(receipt.Message)
	return nil
}

// chooseBook asks for a 1-based number. When show is set, the candidates it
// accepts are listed as "n. title by author" and numbered among themselves.
func (session *Session) chooseBook(ctx context.Context, label string, show func(catalog.Book) bool) (catalog.Book, bool, error) {
	books, err := session.desk.Books.List(ctx)
	if err != nil {
		return catalog.Book{}, false, session.catalogFailure(err)
	}
	candidates := books
	if show != nil {
		candidates = candidates[:0:0]
		for _, book := range books {
			if show(book) {
				candidates = append(candidates, book)
			}
		}
		for index, book := range candidates {
			session.printf("%d. %s by %s\n", index+1, book.Title, book.Author)
		}
	}
	answer, err := session.prompt(label)
	if err != nil {
		return catalog.Book{}, false, err
	}
	number, convErr := strconv.Atoi(strings.TrimSpace(answer))
	if convErr != nil {
		session.println("Invalid input. Please enter a valid number.")
		return catalog.Book{}, false, nil
	}
	if number < 1 || number > len(candidates) {
		session.println("Invalid book number.")
		return catalog.Book{}, false, nil
	}
	return candidates[number-1], true, nil
}

func (session *Session) promptYesNo(label string) (bool, error) {
	answer, err := session.prompt(label)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(answer, "yes"), nil
}

// catalogFailure prints validation errors and returns anything else.
func (session *Session) catalogFailure(err error) error {
	switch {
	case errors.Is(err, catalog.ErrInvalidTitle),
		errors.Is(err, catalog.ErrInvalidAuthor),
		errors.Is(err, catalog.ErrInvalidMetadataJSON),
		errors.Is(err, catalog.ErrDuplicateISBN),
		errors.Is(err, catalog.ErrUnknownBook):
		session.printf("Catalog error: %v\n", err)
		return nil
	default:
		return err
	}
}

func yesNo(value bool) string {
	if value {
		return "Yes"
	}
	return "No"
}
