package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"trip-planner-service/internal/adapters/distance"
	"trip-planner-service/internal/adapters/repositories"
	"trip-planner-service/internal/adapters/sessions"
	"trip-planner-service/internal/api/dto"
	"trip-planner-service/internal/config"
	"trip-planner-service/internal/services"
)

// PlanCmd plans a trip offline: candidates come from a places file and
// travel times from the haversine estimate.
func PlanCmd(policyPath *string) *cobra.Command {
	var tripFile, placesFile string
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan a trip offline and print the itinerary as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := config.LoadPolicy(*policyPath)
			if err != nil {
				return err
			}

			raw, err := os.ReadFile(tripFile)
			if err != nil {
				return fmt.Errorf("read trip: %w", err)
			}
			var req dto.TripRequest
			if err := json.Unmarshal(raw, &req); err != nil {
				return fmt.Errorf("parse trip: %w", err)
			}
			if err := validator.New(validator.WithRequiredStructEnabled()).Struct(req); err != nil {
				return fmt.Errorf("invalid trip: %w", err)
			}
			spec, err := req.ToSpec()
			if err != nil {
				return fmt.Errorf("invalid trip: %w", err)
			}

			_, cands, err := repositories.LoadPlaceSeeds(placesFile)
			if err != nil {
				return err
			}

			asm := services.NewItineraryAssembler(
				repositories.NewStaticCandidateSource(cands),
				distance.NewHaversineMatrix(policy.Fallback),
				sessions.NewMemorySessionStore(),
				policy,
				zap.L(),
			)
			plan, err := asm.Plan(cmd.Context(), spec)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(dto.NewItineraryResponse(plan.Itinerary))
		},
	}
	cmd.Flags().StringVar(&tripFile, "trip", "", "Trip request JSON file")
	cmd.Flags().StringVar(&placesFile, "places", "", "Places JSON file")
	_ = cmd.MarkFlagRequired("trip")
	_ = cmd.MarkFlagRequired("places")
	return cmd
}
