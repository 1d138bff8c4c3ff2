package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"github.com/quillbooks/quill/pkg/authors"
	"github.com/quillbooks/quill/pkg/availability"
	"github.com/quillbooks/quill/pkg/books"
	"github.com/quillbooks/quill/pkg/categories"
	"github.com/quillbooks/quill/pkg/config"
	"github.com/quillbooks/quill/pkg/database"
	"github.com/quillbooks/quill/pkg/migrations"
	"github.com/quillbooks/quill/pkg/models"
	"github.com/quillbooks/quill/pkg/users"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
	"golang.org/x/term"
)

type options struct {
	AdminName      string `long:"admin-name" default:"System Administrator" description:"Name of the admin account"`
	AdminEmail     string `long:"admin-email" default:"admin@quill.local" description:"Email of the admin account"`
	AdminPassword  string `long:"admin-password" env:"QUILL_ADMIN_PASSWORD" description:"Password of the admin account, prompted for when empty"`
	SamplePassword string `long:"sample-password" default:"password123" description:"Password given to the sample librarian and members"`
	NoSamples      bool   `long:"no-samples" description:"Only create the admin account"`
}

type sampleBook struct {
	isbn, title, author, category string
	copies                        int
	cover, description            string
}

var sampleMembers = []struct{ name, email string }{
	{"John Doe", "john.doe@example.com"},
	{"Jane Smith", "jane.smith@example.com"},
	{"Bob Johnson", "bob.johnson@example.com"},
	{"Alice Brown", "alice.brown@example.com"},
	{"Charlie Wilson", "charlie.wilson@example.com"},
}

var sampleBooks = []sampleBook{
	{"978-0-452-28423-4", "1984", "George Orwell", "Fiction", 5, "https://covers.openlibrary.org/b/id/7222246-L.jpg",
		"A dystopian social science fiction novel and cautionary tale about the future."},
	{"978-0-14-143951-8", "Pride and Prejudice", "Jane Austen", "Romance", 3, "https://covers.openlibrary.org/b/id/8091016-L.jpg",
		"A romantic novel of manners following Elizabeth Bennet."},
	{"978-0-7432-7356-5", "The Great Gatsby", "F. Scott Fitzgerald", "Fiction", 4, "",
		"A portrait of the Jazz Age and the American dream."},
	{"978-0-684-80122-3", "The Old Man and the Sea", "Ernest Hemingway", "Fiction", 2, "", ""},
	{"978-0-06-207348-8", "Murder on the Orient Express", "Agatha Christie", "Mystery", 3, "",
		"Hercule Poirot investigates a murder aboard a snowbound train."},
	{"978-0-553-29335-7", "Foundation", "Isaac Asimov", "Science Fiction", 2, "", ""},
	{"978-1-4516-7331-9", "Fahrenheit 451", "Ray Bradbury", "Science Fiction", 3, "",
		"In a future society books are outlawed and burned."},
	{"978-0-547-92822-7", "The Hobbit", "J.R.R. Tolkien", "Fantasy", 4, "", ""},
	{"978-0-486-28061-5", "Adventures of Huckleberry Finn", "Mark Twain", "Fiction", 1, "", ""},
	{"978-0-14-143960-0", "Great Expectations", "Charles Dickens", "Drama", 2, "", ""},
	{"978-0-06-112008-4", "To Kill a Mockingbird", "Harper Lee", "Fiction", 5, "", ""},
}

func main() {
	ctx := context.Background()
	log := logger.New()

	opts := options{}
	if _, err := flags.Parse(&opts); err != nil {
		if flags.WroteHelp(err) {
			return
		}
		log.Err(err).Fatal("flags parse error")
	}

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Err(err).Fatal("database error")
	}
	defer db.Close()

	if _, err := migrations.BringUpToDate(ctx, db); err != nil {
		log.Err(err).Fatal("migrations error")
	}

	userService := users.NewService(db)
	count, err := userService.CountUsers(ctx)
	if err != nil {
		log.Err(err).Fatal("count users error")
	}
	if count > 0 {
		log.Warn("database already has users, skipping seed", logger.Data{"users": count})
		return
	}

	if opts.AdminPassword == "" {
		opts.AdminPassword, err = promptPassword("Admin password: ")
		if err != nil {
			log.Err(err).Fatal("password prompt error")
		}
	}

	admin, err := userService.Create(ctx, users.CreateUserOptions{
		Name:     opts.AdminName,
		Email:    opts.AdminEmail,
		Password: opts.AdminPassword,
		Role:     models.RoleAdmin,
	})
	if err != nil {
		log.Err(err).Fatal("create admin error")
	}
	log.Info("created admin", logger.Data{"user_id": admin.ID, "email": admin.Email})

	if opts.NoSamples {
		return
	}

	if err := seedSamples(ctx, db, userService, opts.SamplePassword); err != nil {
		log.Err(err).Fatal("seed samples error")
	}
	log.Info("seed complete", logger.Data{"members": len(sampleMembers), "books": len(sampleBooks)})
}

func seedSamples(ctx context.Context, db *bun.DB, userService *users.Service, password string) error {
	_, err := userService.Create(ctx, users.CreateUserOptions{
		Name:     "Head Librarian",
		Email:    "librarian@quill.local",
		Password: password,
		Role:     models.RoleLibrarian,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	for _, m := range sampleMembers {
		_, err := userService.Create(ctx, users.CreateUserOptions{Name: m.name, Email: m.email, Password: password})
		if err != nil {
			return errors.WithStack(err)
		}
	}

	bookService := books.NewService(db, availability.NewEngine())
	for _, sb := range sampleBooks {
		author, err := authors.FindOrCreateAuthor(ctx, db, sb.author)
		if err != nil {
			return errors.WithStack(err)
		}
		category, err := categories.FindOrCreateCategory(ctx, db, sb.category)
		if err != nil {
			return errors.WithStack(err)
		}

		book := &models.Book{
			ISBN:        sb.isbn,
			Title:       sb.title,
			TotalCopies: sb.copies,
			AuthorID:    author.ID,
			CategoryID:  category.ID,
		}
		if sb.cover != "" {
			book.Cover = &sb.cover
		}
		if sb.description != "" {
			book.Description = &sb.description
		}
		if err := bookService.CreateBook(ctx, book); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

func promptPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no --admin-password given and stdin is not a terminal")
	}

	fmt.Fprint(os.Stderr, prompt)
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", errors.WithStack(err)
	}

	fmt.Fprint(os.Stderr, "Confirm password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", errors.WithStack(err)
	}

	if string(first) != string(second) {
		return "", errors.New("passwords don't match")
	}
	return string(first), nil
}
