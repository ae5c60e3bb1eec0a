// Command portalctl signs in to the portal from a terminal and keeps the
// session in a local file, the way the web client keeps it in the browser.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"maternar/client"
	"maternar/utils"
)

const usage = `Usage: portalctl [flags] <command> [command flags]

Commands:
  login     -email <email> -password <password>
  register  -email <email> -password <password> -first <name> -last <name> [-department <d>] [-position <p>]
  logout
  whoami

Flags:
`

var version = "dev"

func main() {
	_ = godotenv.Load()

	endpoint := flag.String("endpoint", os.Getenv("MATERNAR_API_URL"), "GraphQL endpoint (default: derived from -host)")
	host := flag.String("host", "localhost", "Portal hostname used to derive the endpoint")
	mock := flag.Bool("mock", envBool("MATERNAR_MOCK"), "Use the offline mock backend")
	debug := flag.Bool("debug", false, "Log debug output")
	sessionPath := flag.String("session", defaultSessionPath(), "File holding the saved session")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	level := "warn"
	if *debug {
		level = "debug"
	}
	logger := utils.NewLogger(level, "text")

	p := client.New(client.Config{
		Mock:        *mock,
		Debug:       *debug,
		Endpoint:    *endpoint,
		Hostname:    *host,
		AppVersion:  version,
		Environment: "cli",
	}, client.NewFileStorage(*sessionPath), client.WithLogger(logger))
	defer p.Close()
	p.Init()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd, args := flag.Arg(0), flag.Args()[1:]
	switch cmd {
	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		email := fs.String("email", "", "Account email")
		password := fs.String("password", "", "Account password")
		fs.Parse(args)
		report(p, p.Login(ctx, *email, *password))
	case "register":
		fs := flag.NewFlagSet("register", flag.ExitOnError)
		in := client.RegisterInput{}
		fs.StringVar(&in.Email, "email", "", "Account email")
		fs.StringVar(&in.Password, "password", "", "Account password")
		fs.StringVar(&in.FirstName, "first", "", "First name")
		fs.StringVar(&in.LastName, "last", "", "Last name")
		fs.StringVar(&in.Department, "department", "", "Department")
		fs.StringVar(&in.Position, "position", "", "Position")
		fs.Parse(args)
		report(p, p.Register(ctx, in))
	case "logout":
		p.Logout(ctx)
		fmt.Println("Signed out")
	case "whoami":
		p.Wait()
		if !p.IsAuthenticated() {
			fmt.Println("Not signed in")
			os.Exit(1)
		}
		printUser(p.User())
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		flag.Usage()
		os.Exit(2)
	}
}

func report(p *client.Provider, res client.Result) {
	if !res.Success {
		fmt.Fprintf(os.Stderr, "Error: %s\n", res.Error)
		os.Exit(1)
	}
	printUser(p.User())
}

func printUser(u *client.User) {
	fmt.Printf("%s <%s>\n", u.FullName, u.Email)
	fmt.Printf("   Role: %s\n", u.Role)
	fmt.Printf("   Level %d, %d XP (%d this week)\n", u.Level, u.TotalXP, u.WeeklyXP)
	fmt.Printf("   Streak: %d days (best %d)\n", u.CurrentStreak, u.LongestStreak)
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "maternar", "session.json")
}

func envBool(key string) bool {
	v, _ := strconv.ParseBool(os.Getenv(key))
	return v
}
