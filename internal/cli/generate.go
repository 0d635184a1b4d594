package cli

import (
	"encoding/json"
	"os"

	"cyberhoot-service/internal/app"
	"cyberhoot-service/internal/config"
	"cyberhoot-service/internal/domain"
	"cyberhoot-service/internal/prompt"
	"github.com/spf13/cobra"
)

// NewGenerateCmd drafts one batch of questions and prints it as JSON without storing it.
func NewGenerateCmd(configPath *string) *cobra.Command {
	var params prompt.Params
	var questionType string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a batch of questions and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			params.Type = domain.QuestionType(questionType)
			pipeline := app.NewQuestionPipeline(newGateway(cfg), promptBuilder(cfg), nil, nil)
			questions, err := pipeline.Draft(cmd.Context(), params)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(questions)
		},
	}
	cmd.Flags().StringVar(&params.Topic, "topic", "", "question topic")
	cmd.Flags().StringVar(&questionType, "type", string(domain.QuestionMCQ), "question type: mcq or open")
	cmd.Flags().IntVar(&params.Difficulty, "difficulty", 5, "difficulty from 1 to 10")
	cmd.Flags().IntVar(&params.Count, "count", 5, "number of questions")
	cmd.Flags().StringVar(&params.Language, "language", prompt.DefaultLanguage, "question language")
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}
