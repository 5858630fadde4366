package sqlinline

// Run-log ingestion. The run row is keyed by its run-log path; re-ingesting
// the same path replaces the row and all of its children inside one
// transaction.

const QUpsertRun = `--sql 3c1b5a7e-9f42-4d8b-b1c6-2a7de4f0a9b1
with incoming as (
    select
        $1::text as run_log_path,
        $2::text as project,
        $3::text as mode,
        $4::text as stage,
        nullif($5::text, '') as time_of_day,
        nullif($6::text, '') as weather,
        $7::text as model,
        $8::text as size,
        $9::text as quality,
        $10::jsonb as document
)
insert into pipeline_runs (id, run_log_path, project, mode, stage, time_of_day, weather, model, size, quality, document, created_at, updated_at)
select gen_random_uuid(), run_log_path, project, mode, stage, time_of_day, weather, model, size, quality, document, now(), now()
from incoming
on conflict (run_log_path) do update set
    project = excluded.project,
    mode = excluded.mode,
    stage = excluded.stage,
    time_of_day = excluded.time_of_day,
    weather = excluded.weather,
    model = excluded.model,
    size = excluded.size,
    quality = excluded.quality,
    document = excluded.document,
    updated_at = now()
returning id;
`

const QDeleteRunJobs = `--sql 5d0f2c88-1e37-4a52-9e64-c3b9a17d2e45
delete from pipeline_jobs where run_id = $1::uuid;
`

const QDeleteRunCandidates = `--sql 7a94e3b1-6c2d-4f18-8d05-4e6fb8c91a27
delete from pipeline_candidates where run_id = $1::uuid;
`

const QDeleteRunQualityReports = `--sql 9e5c1d42-3b78-4a06-bf39-8d12c6e47f53
delete from pipeline_quality_reports where run_id = $1::uuid;
`

const QDeleteRunCostEvents = `--sql 1f8a6e29-5d43-4c07-a2b8-6e94d3f15c72
delete from pipeline_cost_events where run_id = $1::uuid;
`

const QInsertRunJob = `--sql b2d74f16-8a59-4e23-9c01-7f3e5a82d694
insert into pipeline_jobs (id, run_id, job_id, status, selected_candidate, final_output, failure_reason, prompt, input_images, created_at)
values (gen_random_uuid(), $1::uuid, $2::text, $3::text, $4::int, nullif($5::text, ''), nullif($6::text, ''), $7::text, $8::jsonb, now());
`

const QInsertRunCandidate = `--sql d6e91a38-2c57-4b84-a1f0-9b46c2e78d15
insert into pipeline_candidates (id, run_id, job_id, candidate_index, status, final_output, created_at)
values (gen_random_uuid(), $1::uuid, $2::text, $3::int, $4::text, nullif($5::text, ''), now());
`

const QInsertQualityReport = `--sql f4a82c61-7e95-4d30-b5c9-1d38e6a42f87
insert into pipeline_quality_reports (id, run_id, job_id, candidate_index, hard_failures, soft_warnings, avg_chroma_excess, archived_to, created_at)
values (gen_random_uuid(), $1::uuid, $2::text, $3::int, $4::int, $5::int, $6::double precision, nullif($7::text, ''), now());
`

const QInsertCostEvent = `--sql 8c3f5d17-4b29-4e61-a8d4-2f71b9c65e03
insert into pipeline_cost_events (id, run_id, job_id, candidate_index, operation, model, size, quality, amount_usd, created_at)
values (gen_random_uuid(), $1::uuid, $2::text, $3::int, $4::text, $5::text, $6::text, $7::text, $8::numeric, now());
`
