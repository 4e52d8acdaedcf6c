package cmd

import (
	"fmt"

	"github.com/darknessitachi/pquant/internal/entity"
	"github.com/darknessitachi/pquant/internal/repo"
	"github.com/darknessitachi/pquant/internal/service/calendar"
	"github.com/darknessitachi/pquant/ioc"
	"github.com/spf13/cobra"
)

var holidayCmd = &cobra.Command{
	Use:   "holiday",
	Short: "维护休市日",
}

var holidayAddCmd = &cobra.Command{
	Use:   "add <date>...",
	Short: "添加休市日, 已存在的日期更新备注",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		note, _ := cmd.Flags().GetString("note")
		loc := ioc.InitLocation()
		holidayRepo := repo.NewHolidayRepo(ioc.InitDB())

		for _, arg := range args {
			d, err := calendar.ParseDate(arg, loc)
			if err != nil {
				return err
			}
			if err = holidayRepo.Create(cmd.Context(), entity.Holiday{Date: calendar.DateKey(d), Note: note}); err != nil {
				return fmt.Errorf("add holiday %s: %w", arg, err)
			}
			cmd.Printf("added %s\n", calendar.DateKey(d))
		}
		return nil
	},
}

var holidayListCmd = &cobra.Command{
	Use:   "list",
	Short: "列出已保存的休市日",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		holidays, err := repo.NewHolidayRepo(ioc.InitDB()).List(cmd.Context())
		if err != nil {
			return err
		}
		for _, h := range holidays {
			cmd.Printf("%s\t%s\n", h.Date, h.Note)
		}
		return nil
	},
}

func init() {
	holidayAddCmd.Flags().String("note", "", "note for the holidays")
	holidayCmd.AddCommand(holidayAddCmd, holidayListCmd)
	rootCmd.AddCommand(holidayCmd)
}
