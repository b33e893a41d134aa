package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/openziti/modelctl/kernel/audit"
	"github.com/openziti/modelctl/kernel/ingest"
	"github.com/openziti/modelctl/kernel/model"
	"github.com/openziti/modelctl/kernel/store"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Stopper force stops a model deployment.
type Stopper interface {
	ForceStop(ctx context.Context, modelId string) error
}

// ModelRemover deletes the catalog record of a model.
type ModelRemover interface {
	Delete(ctx context.Context, id string) error
}

type DeleteRequest struct {
	ModelId string `json:"model_id"`
	Force   bool   `json:"force"`
}

type DeleteResponse struct {
	Acknowledged bool `json:"acknowledged"`
}

type Phase string

const (
	PhaseStart              Phase = "start"
	PhaseScanning           Phase = "scanning"
	PhaseDeciding           Phase = "deciding"
	PhaseStoppingDeployment Phase = "stopping_deployment"
	PhaseMutatingAliases    Phase = "mutating_aliases"
	PhaseDeletingResource   Phase = "deleting_resource"
	PhaseDone               Phase = "done"
	PhaseAborted            Phase = "aborted"
)

// Deleter deletes trained models once it is safe to do so: the model must not be referenced by a
// pipeline, directly or through one of its aliases, and must not be deployed, unless force is set.
// All checks run against a single metadata snapshot. A reference or deployment created after the
// snapshot is not seen; only the alias removal itself is protected by a conditional commit.
type Deleter struct {
	Store       store.MetadataStore
	Scanner     *ingest.Scanner
	Deployments Stopper
	Aliases     *AliasMutator
	Catalog     ModelRemover
	Notifier    audit.Notifier
	Log         logrus.FieldLogger
	Metrics     *Metrics

	inflight singleflight.Group
}

func NewDeleter(s store.MetadataStore, deployments Stopper, catalog ModelRemover, notifier audit.Notifier, log logrus.FieldLogger) *Deleter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if notifier == nil {
		notifier = audit.NewLogNotifier(log)
	}
	return &Deleter{
		Store:       s,
		Scanner:     ingest.NewScanner(ingest.DefaultRegistry, log),
		Deployments: deployments,
		Aliases:     NewAliasMutator(s, log),
		Catalog:     catalog,
		Notifier:    notifier,
		Log:         log,
	}
}

// Delete runs one deletion request. It returns a *ConflictError when the model is still in use
// and force is not set, and the collaborator's error when a step fails. Identical requests that
// arrive while one is running share its outcome. Once started, a deletion is not cancelled by the
// caller going away: side effects already issued run to completion.
func (d *Deleter) Delete(ctx context.Context, req DeleteRequest) (*DeleteResponse, error) {
	if req.ModelId == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "model id is required")
	}

	key := fmt.Sprintf("%s/%t", req.ModelId, req.Force)
	ctx = context.WithoutCancel(ctx)
	result, err, _ := d.inflight.Do(key, func() (interface{}, error) {
		start := time.Now()
		response, err := d.run(ctx, req)
		d.Metrics.observe(start, err)
		return response, err
	})
	if err != nil {
		return nil, err
	}
	return result.(*DeleteResponse), nil
}

// deletion carries the state of one request between phases.
type deletion struct {
	request    DeleteRequest
	phase      Phase
	log        logrus.FieldLogger
	snapshot   *model.ClusterState
	references ingest.References
	aliases    []string
	overridden []string
}

func (del *deletion) enter(phase Phase) {
	del.log.WithField("phase", phase).Debugf("leaving %s", del.phase)
	del.phase = phase
}

// stateFn runs one phase and returns the next one, or nil once the deletion is finished.
type stateFn func(ctx context.Context, del *deletion) (stateFn, error)

func (d *Deleter) run(ctx context.Context, req DeleteRequest) (*DeleteResponse, error) {
	del := &deletion{
		request: req,
		phase:   PhaseStart,
		log:     d.Log.WithField("modelId", req.ModelId),
	}
	if req.Force {
		del.log.Debug("request to delete trained model (force)")
	} else {
		del.log.Debug("request to delete trained model")
	}

	for state := stateFn(d.scan); state != nil; {
		var err error
		if state, err = state(ctx, del); err != nil {
			if IsConflict(err) {
				del.enter(PhaseAborted)
				del.log.WithError(err).Info("deletion refused")
			} else {
				del.log.WithError(err).WithField("phase", del.phase).Error("deletion failed")
			}
			return nil, err
		}
	}
	return &DeleteResponse{Acknowledged: true}, nil
}

func (d *Deleter) scan(ctx context.Context, del *deletion) (stateFn, error) {
	del.enter(PhaseScanning)
	snapshot, err := d.Store.Snapshot(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read cluster metadata")
	}
	del.snapshot = snapshot
	del.references = d.Scanner.Scan(snapshot.Pipelines)
	del.aliases = snapshot.Aliases.AliasesFor(del.request.ModelId)
	return d.decide, nil
}

func (d *Deleter) decide(_ context.Context, del *deletion) (stateFn, error) {
	del.enter(PhaseDeciding)
	id := del.request.ModelId
	force := del.request.Force

	if del.references.Contains(id) {
		pipeline := firstOf(del.references.Pipelines(id))
		if !force {
			return nil, &ConflictError{ModelId: id, Reason: ReferencedByPipeline, Pipeline: pipeline}
		}
		del.overridden = append(del.overridden, fmt.Sprintf("referenced by ingest pipeline [%s]", pipeline))
	}

	for _, alias := range del.aliases {
		if del.references.Contains(alias) {
			pipeline := firstOf(del.references.Pipelines(alias))
			if !force {
				return nil, &ConflictError{ModelId: id, Reason: ReferencedViaAlias, Alias: alias, Pipeline: pipeline}
			}
			del.overridden = append(del.overridden, fmt.Sprintf("referenced by ingest pipeline [%s] through model_alias [%s]", pipeline, alias))
		}
	}

	if del.snapshot.Allocations.IsAllocated(id) {
		if !force {
			return nil, &ConflictError{ModelId: id, Reason: CurrentlyDeployed}
		}
		del.overridden = append(del.overridden, "deployed")
		return d.stopDeployment, nil
	}

	return d.mutateAliases, nil
}

func (d *Deleter) stopDeployment(ctx context.Context, del *deletion) (stateFn, error) {
	del.enter(PhaseStoppingDeployment)
	if err := d.Deployments.ForceStop(ctx, del.request.ModelId); err != nil {
		return nil, err
	}
	return d.mutateAliases, nil
}

// mutateAliases must commit before the catalog delete: a failure in between leaves the model
// present without aliases, never an alias pointing at a missing model.
func (d *Deleter) mutateAliases(ctx context.Context, del *deletion) (stateFn, error) {
	del.enter(PhaseMutatingAliases)
	if err := d.Aliases.RemoveAliases(ctx, del.request.ModelId, del.aliases); err != nil {
		return nil, err
	}
	return d.deleteResource, nil
}

func (d *Deleter) deleteResource(ctx context.Context, del *deletion) (stateFn, error) {
	del.enter(PhaseDeletingResource)
	if err := d.Catalog.Delete(ctx, del.request.ModelId); err != nil {
		return nil, err
	}
	del.enter(PhaseDone)
	d.notify(del.request.ModelId, "trained model deleted", d.Notifier.Info)
	for _, reason := range del.overridden {
		d.notify(del.request.ModelId, "trained model deleted with force while "+reason, d.Notifier.Warning)
	}
	return nil, nil
}

// notify reports to the audit trail. A failing notifier never fails the deletion.
func (d *Deleter) notify(modelId, message string, send func(modelId, message string)) {
	defer func() {
		if r := recover(); r != nil {
			d.Log.WithField("modelId", modelId).Errorf("audit notification failed: %v", r)
		}
	}()
	send(modelId, message)
}

func firstOf(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
