// Package app executa uma passada completa do otimizador sobre a cena:
// limites, chunks, métodos de agrupamento e o fechamento da sessão.
package app

import (
	"errors"
	"fmt"
	"log"
	"time"

	"DrawCallsOptimizer/otimizador/internal/catalog"
	"DrawCallsOptimizer/otimizador/internal/chunks"
	"DrawCallsOptimizer/otimizador/internal/grouping"
	"DrawCallsOptimizer/otimizador/internal/merger"
	"DrawCallsOptimizer/otimizador/internal/rollback"
	"DrawCallsOptimizer/shared/config"
	"DrawCallsOptimizer/shared/scene"
	"DrawCallsOptimizer/shared/util"
)

// SceneBoundsName é o nome do objeto de limites criado quando nenhum é informado.
const SceneBoundsName = "SceneBounds"

// MethodReport resume o que um método produziu na passada.
type MethodReport struct {
	Method   grouping.Method
	Groups   int // Grupos propostos pela política
	Merged   int // Entidades fundidas criadas
	Entities int // Entidades consumidas pelas fusões
	Stale    int // Referências obsoletas descartadas antes do agrupamento
}

// Report é o resultado de uma passada.
type Report struct {
	Region     string
	Candidates int
	Chunks     int
	Assigned   int // Entidades que caíram em algum chunk
	Methods    []MethodReport
	Records    []rollback.MergeRecord
	Originals  int // Originais desativadas no fim da passada
	Duration   time.Duration
}

// Merged retorna o total de entidades fundidas criadas.
func (r *Report) Merged() int {
	n := 0
	for _, m := range r.Methods {
		n += m.Merged
	}
	return n
}

// Optimizer liga a cena, a configuração e a sessão de desfazer.
type Optimizer struct {
	Store   *scene.Store
	Config  *config.Config
	Session *rollback.Session

	Merger grouping.MeshMerger
	LODs   grouping.LODGenerator

	// Opcional: grava a proveniência das fusões
	History     *rollback.Store
	SessionName string
}

// New cria o otimizador com o merger de referência da cena em memória.
func New(store *scene.Store, cfg *config.Config, sess *rollback.Session) *Optimizer {
	return &Optimizer{
		Store:   store,
		Config:  cfg,
		Session: sess,
		Merger:  merger.New(store),
		LODs:    merger.NewLODGenerator(store),
	}
}

// pass guarda o estado de uma execução de Run.
type pass struct {
	*Optimizer

	bounds     scene.EntityID
	region     chunks.Region
	candidates []catalog.Candidate
	excluded   map[string]bool
	grid       []chunks.Chunk
	assignment chunks.Assignment
	consumed   map[scene.EntityID]bool
	combiner   *grouping.Combiner
	report     *Report
}

// Run executa uma passada. Erros de configuração são retornados antes de qualquer mutação.
func (o *Optimizer) Run() (*Report, error) {
	start := time.Now()
	cfg := o.Config

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if o.Session == nil {
		o.Session = rollback.NewSession(o.Store)
	}

	p := &pass{
		Optimizer: o,
		consumed:  make(map[scene.EntityID]bool),
		report:    &Report{},
	}

	if err := p.prepareRegion(); err != nil {
		return nil, err
	}

	// Com chunks, a subdivisão é validada antes de tocar na cena
	if cfg.UseChunks {
		grid, err := chunks.Build(p.region, cfg.Chunks)
		if err != nil {
			return nil, err
		}
		p.grid = grid
	}

	if cfg.SaveOriginals {
		o.Session.ResetOriginals()
	}
	if p.bounds == scene.NoEntity {
		p.createSceneBounds()
	}
	p.report.Region = p.region.Name

	for _, id := range p.representatives() {
		o.Session.MarkOriginal(id)
	}

	if len(p.grid) > 0 {
		if cfg.RetainChunks {
			for _, id := range chunks.Materialize(o.Store, p.bounds, p.grid) {
				o.Session.RegisterCreated(id)
			}
		}
		assignment, err := chunks.Assign(p.grid, p.candidates, cfg.Workers)
		if err != nil {
			return nil, fmt.Errorf("falha ao atribuir entidades aos chunks: %w", err)
		}
		p.assignment = assignment
		p.report.Chunks = len(p.grid)
		p.report.Assigned = assignment.Entities()
	}

	p.combiner = &grouping.Combiner{
		Engine:     o.Store,
		Tracker:    o.Session,
		Merger:     o.Merger,
		LODs:       o.LODs,
		Namer:      grouping.Namer{Region: p.region.Name, Materials: o.Store.Materials},
		Preserve:   cfg.SaveOriginals,
		OnlyStatic: cfg.OnlyStatic,
		Excluded:   p.excluded,
	}

	for _, method := range grouping.Methods {
		if !p.enabled(method) {
			continue
		}
		var mr MethodReport
		if method == grouping.Distance && len(cfg.Collections) > 0 {
			mr = p.runCollections()
		} else {
			mr = p.runMethod(method)
		}
		p.report.Methods = append(p.report.Methods, mr)
		log.Printf("[Otimizador] %s: %d grupos, %d fusões, %d entidades, %d obsoletas",
			method.Key(), mr.Groups, mr.Merged, mr.Entities, mr.Stale)
	}

	p.finish()

	if o.History != nil && len(p.report.Records) > 0 {
		if err := o.History.RecordMerges(p.report.Records); err != nil {
			log.Printf("[Otimizador] Falha ao gravar o histórico de fusões: %v", err)
		}
	}

	p.report.Duration = time.Since(start)
	log.Printf("[Otimizador] Passada concluída em %v: %d candidatos, %d entidades fundidas",
		p.report.Duration.Round(time.Millisecond), p.report.Candidates, p.report.Merged())
	return p.report, nil
}

// prepareRegion resolve o objeto de limites e coleta os candidatos.
func (p *pass) prepareRegion() error {
	cfg := p.Config
	filter := catalog.Filter{OnlyStatic: cfg.OnlyStatic}

	if cfg.BoundsObject != "" {
		id, ok := p.Store.FindByName(cfg.BoundsObject)
		if !ok {
			return fmt.Errorf("%w: objeto de limites %q não existe na cena", config.ErrInvalidConfiguration, cfg.BoundsObject)
		}
		e, err := p.Store.Get(id)
		if err != nil {
			return fmt.Errorf("objeto de limites %q: %w", cfg.BoundsObject, err)
		}

		// A escala do objeto é o tamanho da região e a rotação, o seu referencial
		p.bounds = id
		p.region = chunks.Region{
			Name:     e.Name,
			Bounds:   util.NewAABB(e.Position, e.Scale),
			Rotation: e.Rotation,
			Entity:   id,
		}
		filter.Exclude = id
		if e.HasRenderer {
			box := e.Bounds
			filter.Bounds = &box
		}
	}

	res := catalog.Resolve(p.Store, catalog.Collect(p.Store, filter))
	p.candidates = res.Candidates
	p.excluded = res.Excluded
	p.report.Candidates = len(res.Candidates)

	if p.bounds == scene.NoEntity {
		p.region = chunks.Region{
			Name:     SceneBoundsName,
			Bounds:   catalog.Bounds(res.Candidates),
			Rotation: util.IdentityRotation(),
		}
	}
	return nil
}

// createSceneBounds cria o objeto de limites a partir dos limites calculados da cena.
func (p *pass) createSceneBounds() {
	box := p.region.Bounds
	id := p.Store.Create(scene.Entity{
		Name:     SceneBoundsName,
		Position: box.Center,
		Rotation: util.IdentityRotation(),
		Scale:    box.Size(),
		Bounds:   box,
		Active:   true,
	})
	p.Session.RegisterCreated(id)
	p.bounds = id
	p.region.Entity = id
	log.Printf("[Otimizador] %s criado em %v", SceneBoundsName, box)
}

func (p *pass) representatives() []scene.EntityID {
	var out []scene.EntityID
	for _, c := range p.candidates {
		if c.LOD == scene.LODRepresentative {
			out = append(out, c.ID)
		}
	}
	return out
}

func (p *pass) enabled(m grouping.Method) bool {
	switch m {
	case grouping.Polygons:
		return p.Config.ByPolygons
	case grouping.Materials:
		return p.Config.ByMaterials
	case grouping.Tags:
		return p.Config.ByTags
	case grouping.Distance:
		return p.Config.ByDistance
	}
	return false
}

func (p *pass) params(drain bool) grouping.Params {
	return grouping.Params{
		PolygonThreshold:  p.Config.PolygonThreshold,
		MaterialThreshold: p.Config.MaterialThreshold,
		Tags:              p.Config.Tags,
		DistanceLimit:     p.Config.DistanceLimit,
		Drain:             drain,
	}
}

// live relê os candidatos e descarta os já consumidos por um método anterior.
func (p *pass) live(cands []catalog.Candidate) ([]catalog.Candidate, int) {
	pending := make([]catalog.Candidate, 0, len(cands))
	for _, c := range cands {
		if !p.consumed[c.ID] {
			pending = append(pending, c)
		}
	}
	return catalog.Refresh(p.Store, pending)
}

// runMethod roda o método por chunk, em ordem de ordinal, ou na cena inteira
// quando nenhuma entidade caiu em chunk.
func (p *pass) runMethod(method grouping.Method) MethodReport {
	mr := MethodReport{Method: method}
	cands, stale := p.live(p.candidates)
	mr.Stale = stale

	if len(p.assignment) == 0 {
		p.merge(&mr, grouping.Group(method, cands, p.params(false)), "")
		return mr
	}

	lookup := catalog.Lookup(cands)
	for _, ord := range p.assignment.Ordinals() {
		var subset []catalog.Candidate
		for _, id := range p.assignment[ord] {
			if c, ok := lookup[id]; ok && !p.consumed[id] {
				subset = append(subset, c)
			}
		}
		if len(subset) == 0 {
			continue
		}
		p.merge(&mr, grouping.Group(method, subset, p.params(false)), p.grid[ord].Name)
	}
	return mr
}

// runCollections drena os descendentes de cada coleção em grupos por distância.
// A numeração dos grupos continua de uma coleção para a outra.
func (p *pass) runCollections() MethodReport {
	mr := MethodReport{Method: grouping.Distance}
	iteration := 0

	for _, name := range p.Config.Collections {
		root, ok := p.Store.FindByName(name)
		if !ok {
			log.Printf("[Otimizador] Coleção %q não encontrada, ignorada", name)
			continue
		}

		// A coleção é drenada inteira: o filtro de estáticos não se aplica
		filter := catalog.Filter{Exclude: p.bounds}
		res := catalog.Resolve(p.Store, catalog.CollectFrom(p.Store, p.Store.Descendants(root), filter))
		for k := range res.Excluded {
			p.excluded[k] = true
		}
		for _, c := range res.Candidates {
			if c.LOD == scene.LODRepresentative {
				p.Session.MarkOriginal(c.ID)
			}
		}

		cands, stale := p.live(res.Candidates)
		mr.Stale += stale

		groups := grouping.Group(grouping.Distance, cands, p.params(true))
		for i := range groups {
			groups[i].Iteration += iteration
		}
		iteration += len(groups)
		p.merge(&mr, groups, "")

		if p.Config.SaveOriginals {
			if err := p.Store.SetActive(root, false); err != nil {
				log.Printf("[Otimizador] Falha ao desativar a coleção %q: %v", name, err)
			}
			p.Session.MarkOriginal(root)
		} else {
			p.releaseLeftovers(root)
			if err := p.Store.Destroy(root); err != nil && !errors.Is(err, scene.ErrStaleReference) {
				log.Printf("[Otimizador] Falha ao remover a coleção %q: %v", name, err)
			}
		}
	}
	return mr
}

// releaseLeftovers move os filhos que sobraram na coleção (ex: inativos) para o
// pai da coleção, para que não sejam destruídos junto com ela.
func (p *pass) releaseLeftovers(root scene.EntityID) {
	e, err := p.Store.Get(root)
	if err != nil {
		return
	}
	for _, child := range p.Store.Children(root) {
		if err := p.Store.SetParent(child, e.Parent); err != nil {
			log.Printf("[Otimizador] Falha ao retirar %v da coleção %q: %v", child, e.Name, err)
			continue
		}
		log.Printf("[Otimizador] %v não foi fundido e saiu da coleção %q", child, e.Name)
	}
}

// merge leva os grupos ao combiner e marca as entidades consumidas.
func (p *pass) merge(mr *MethodReport, groups []grouping.MergeGroup, chunk string) {
	mr.Groups += len(groups)
	for i := range groups {
		g := &groups[i]
		g.Chunk = chunk

		merged, err := p.combiner.Combine(g)
		if err != nil {
			if errors.Is(err, grouping.ErrEmptyGroup) {
				mr.Stale += len(g.Entities)
			}
			log.Printf("[Otimizador] Grupo ignorado: %v", err)
			continue
		}

		for _, id := range g.Entities {
			p.consumed[id] = true
		}
		mr.Merged++
		mr.Entities += len(g.Entities)
		p.report.Records = append(p.report.Records,
			rollback.NewMergeRecord(p.SessionName, merged, g.Name, g.Method.Key(), chunk, g.Entities))
	}
}

// finish desativa as originais, remove o objeto de limites e os clones restantes.
func (p *pass) finish() {
	p.report.Originals = p.Session.DeactivateOriginals()

	if p.Config.DestroyBounds && p.bounds != scene.NoEntity {
		if err := p.Store.Destroy(p.bounds); err != nil && !errors.Is(err, scene.ErrStaleReference) {
			log.Printf("[Otimizador] Falha ao destruir o objeto de limites: %v", err)
		}
	}

	if p.Config.SaveOriginals {
		if n := p.Session.DestroyAllClones(); n > 0 {
			log.Printf("[Otimizador] %d clones restantes destruídos", n)
		}
	}
}
