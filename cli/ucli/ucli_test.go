package ucli

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	urfave "github.com/urfave/cli/v2"
	"go.dedis.ch/coffeetrace/cli"
)

func TestBuild(t *testing.T) {
	builder := NewBuilder("test", nil)
	builder.(*Builder).SetUsage("a test application")

	app := builder.Build().(*urfave.App)

	app.Writer = io.Discard

	require.Equal(t, "test", app.Name)
	require.Equal(t, "a test application", app.Usage)

	err := app.Run([]string{"test"})
	require.NoError(t, err)
}

func TestSetCommand(t *testing.T) {
	builder := NewBuilder("test", nil)

	builder.SetCommand("first")
	builder.SetCommand("second")

	app := builder.Build().(*urfave.App)

	require.Len(t, app.Commands, 3)

	require.Equal(t, "first", app.Commands[0].Name)
	require.Equal(t, "second", app.Commands[1].Name)
	require.Equal(t, "help", app.Commands[2].Name)
}

func TestCommandBuilder(t *testing.T) {
	builder := NewBuilder("test", nil).(*Builder)
	cmd := builder.SetCommand("first")

	fakeAction := func(flags cli.Flags) error {
		return nil
	}

	cmd.SetAction(fakeAction)
	cmd.SetDescription("first action")
	cmd.SetFlags(cli.StringFlag{
		Name:     "arg",
		Usage:    "this is a test arg",
		Required: true,
		Value:    "default",
	})
	cmd.SetSubCommand("second")

	require.Len(t, builder.commands, 1)
	require.Len(t, builder.flags, 0)

	cmd2 := builder.commands[0]
	require.Len(t, cmd2.flags, 1)
	require.Len(t, cmd2.subcommands, 1)
}

func TestApplication_GlobalFlags(t *testing.T) {
	var db string
	var verbose bool

	builder := NewBuilder("test", nil, cli.StringFlag{Name: "db"})

	cmd := builder.SetCommand("batch").SetSubCommand("show")
	cmd.SetFlags(cli.BoolFlag{Name: "verbose"})
	cmd.SetAction(func(flags cli.Flags) error {
		db = flags.String("db")
		verbose = flags.Bool("verbose")
		return nil
	})

	err := builder.Build().Run([]string{"test", "--db", "state.db", "batch", "show", "--verbose"})
	require.NoError(t, err)
	require.Equal(t, "state.db", db)
	require.True(t, verbose)
}

func TestApplication_EnvFlags(t *testing.T) {
	t.Setenv("TEST_LOG_LEVEL", "debug")
	t.Setenv("TEST_DB", "env.db")

	var level, db string

	builder := NewBuilder("test", nil, cli.StringFlag{Name: "log-level"}, cli.PathFlag{Name: "db"})
	builder.(*Builder).SetEnvPrefix("TEST")

	builder.SetCommand("show").SetAction(func(flags cli.Flags) error {
		level = flags.String("log-level")
		db = flags.Path("db")
		return nil
	})

	err := builder.Build().Run([]string{"test", "--db", "flag.db", "show"})
	require.NoError(t, err)
	require.Equal(t, "debug", level)
	require.Equal(t, "flag.db", db)
}

func TestBuildFlags(t *testing.T) {
	in := []cli.Flag{
		cli.StringFlag{
			Name:     "name1",
			Usage:    "usage1",
			Required: true,
			Value:    "value1",
		},
		cli.PathFlag{
			Name:     "name2",
			Usage:    "usage2",
			Required: true,
			Value:    "/tmp",
		},
		cli.IntFlag{
			Name:     "name3",
			Usage:    "usage3",
			Required: true,
			Value:    1,
		},
		cli.BoolFlag{
			Name:     "name4",
			Usage:    "usage4",
			Required: true,
			Value:    true,
		},
	}

	out := buildFlags(in, "")
	require.Len(t, out, 4)

	require.Equal(t, "name1", out[0].Names()[0])
	require.Equal(t, "name2", out[1].Names()[0])
	require.Equal(t, "name3", out[2].Names()[0])
	require.Equal(t, "name4", out[3].Names()[0])

	out = buildFlags(in, "APP")
	require.Equal(t, []string{"APP_NAME1"}, out[0].(*urfave.StringFlag).EnvVars)
	require.Equal(t, []string{"APP_NAME4"}, out[3].(*urfave.BoolFlag).EnvVars)
}

func TestBuildFlags_Panic(t *testing.T) {
	defer func() {
		r := recover()
		require.Equal(t, "flag type '<nil>' not supported", r)
	}()

	buildFlags([]cli.Flag{nil}, "")
}

func TestMakeAction(t *testing.T) {
	res := makeAction(nil)
	require.Nil(t, res)

	isCalled := false
	fakeAction := func(flags cli.Flags) error {
		require.Nil(t, flags)
		isCalled = true
		return nil
	}

	res = makeAction(fakeAction)
	require.NotNil(t, res)

	out := res(nil)
	require.NoError(t, out)
	require.True(t, isCalled)
}
