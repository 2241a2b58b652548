package site

const pageTemplate = `{{define "page"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
<title>{{.Title}}</title>
<style>
*{box-sizing:border-box;margin:0;padding:0}
body{font-family:'JetBrains Mono',monospace,sans-serif;background:#0d1117;color:#c9d1d9;font-size:13px;line-height:1.5}
nav{background:#161b22;border-bottom:1px solid #30363d;padding:8px 16px;display:flex;gap:12px;align-items:center}
nav .brand{color:#f0f6fc;font-weight:700;font-size:15px;margin-right:auto}
nav button{background:#21262d;color:#c9d1d9;border:1px solid #30363d;border-radius:4px;padding:4px 10px;cursor:pointer}
nav button.on{background:#1f6feb;border-color:#1f6feb;color:#fff}
main{padding:16px}
.trace{display:none}
.trace.current{display:grid;grid-template-columns:minmax(0,3fr) minmax(0,2fr);gap:16px}
.trace h1{grid-column:1/-1;font-size:16px;color:#f0f6fc}
.trace video{width:100%;background:#000;border-radius:6px}
.timeline{max-height:80vh;overflow-y:auto;display:flex;flex-direction:column;gap:8px}
.step{background:#161b22;border:1px solid #30363d;border-radius:6px;padding:10px 12px;cursor:pointer}
.step.active{border-color:#56d364}
.step .hdr{color:#8b949e;font-size:11px;margin-bottom:6px}
.step img{max-width:100%;border-radius:4px;margin-bottom:6px}
.step .lbl{color:#58a6ff;font-weight:600;font-size:11px;text-transform:uppercase}
.step pre{white-space:pre-wrap;word-break:break-word;margin-bottom:6px}
.unavailable{color:#f85149;font-size:11px}
.dots{display:flex;gap:6px;justify-content:center;padding:12px}
.dot{width:10px;height:10px;border-radius:50%;background:#30363d;border:0;cursor:pointer}
.dot.current{background:#f0f6fc}
</style>
</head>
<body>
<nav>
<span class="brand">{{.Title}}</span>
<button id="prev" type="button">&larr;</button>
<span id="counter"></span>
<button id="next" type="button">&rarr;</button>
<button id="autoplay" type="button">autoplay</button>
</nav>
<main>
{{range $i, $t := .Traces}}<section class="trace{{if eq $i 0}} current{{end}}" data-index="{{$i}}" data-id="{{$t.ID}}">
<h1>{{$t.Label}}</h1>
<div>
{{if $t.Video}}<video src="{{$t.Video}}" controls preload="metadata" onerror="unavailable(this)"></video>{{else}}<div class="unavailable">no video</div>{{end}}
</div>
<div class="timeline">
{{range $t.Steps}}<div class="step{{if eq .Index 0}} active{{end}}" data-start="{{.Start}}" data-end="{{.End}}">
<div class="hdr">{{.Header}}</div>
{{if .Screenshot}}<img src="{{.Screenshot}}" alt="step {{.Index}}" loading="lazy" onerror="unavailable(this)">{{end}}
<div class="lbl">Thought</div>
<pre>{{.Thought}}</pre>
<div class="lbl">Action</div>
<pre>{{.Action}}</pre>
</div>
{{end}}</div>
</section>
{{else}}<p>No traces.</p>
{{end}}</main>
<div class="dots">{{range $i, $t := .Traces}}<button class="dot{{if eq $i 0}} current{{end}}" type="button" data-index="{{$i}}" title="{{$t.Label}}"></button>{{end}}</div>
<script>
const cfg = {{.Config}};

function unavailable(el) {
  const span = document.createElement('div');
  span.className = 'unavailable';
  span.textContent = 'asset unavailable: ' + el.getAttribute('src');
  el.replaceWith(span);
}

function findIndex(steps, t) {
  for (let i = 0; i < steps.length; i++) {
    if (t >= steps[i].start && t < steps[i].end) return i;
  }
  return -1;
}

function Viewer(section) {
  this.video = section.querySelector('video');
  this.pane = section.querySelector('.timeline');
  this.rows = Array.from(section.querySelectorAll('.step'));
  this.steps = this.rows.map(r => ({start: parseFloat(r.dataset.start), end: parseFloat(r.dataset.end)}));
  this.active = this.rows.length ? 0 : -1;
  this.playing = false;
  const self = this;
  if (this.video) {
    this.video.addEventListener('timeupdate', () => self.update(self.video.currentTime));
    this.video.addEventListener('seeked', () => self.update(self.video.currentTime));
    this.video.addEventListener('play', () => { self.playing = true; });
    this.video.addEventListener('pause', () => { self.playing = false; });
    this.video.addEventListener('ended', () => { self.playing = false; });
  }
  this.rows.forEach((row, i) => row.addEventListener('click', () => self.select(i)));
}

Viewer.prototype.update = function (t) {
  const idx = findIndex(this.steps, t);
  if (idx < 0 || idx === this.active) return;
  this.rows[this.active] && this.rows[this.active].classList.remove('active');
  this.active = idx;
  const row = this.rows[idx];
  row.classList.add('active');
  const offset = row.offsetTop - this.pane.offsetTop - this.pane.clientHeight / 2 + row.offsetHeight / 2;
  this.pane.scrollTo({top: Math.max(0, offset), behavior: 'smooth'});
};

Viewer.prototype.select = function (i) {
  if (this.video) {
    this.video.currentTime = this.steps[i].start;
  } else {
    this.update(this.steps[i].start);
  }
};

const sections = Array.from(document.querySelectorAll('.trace'));
const dots = Array.from(document.querySelectorAll('.dot'));
const viewers = sections.map(s => new Viewer(s));
const state = {active: 0, transitioning: false, autoPlaying: cfg.autoplay, seq: 0, timer: null};

function render() {
  sections.forEach((s, i) => s.classList.toggle('current', i === state.active));
  dots.forEach((d, i) => d.classList.toggle('current', i === state.active));
  document.getElementById('counter').textContent = sections.length ? (state.active + 1) + ' / ' + sections.length : '';
  document.getElementById('autoplay').classList.toggle('on', state.autoPlaying);
}

function goTo(target) {
  if (!sections.length || state.transitioning || target === state.active) return;
  state.transitioning = true;
  const seq = ++state.seq;
  setTimeout(() => {
    if (seq !== state.seq) return;
    state.transitioning = false;
    state.active = target;
    render();
    resetAutoplay();
  }, cfg.settleMs);
}

function next() { if (sections.length) goTo((state.active + 1) % sections.length); }
function prev() { if (sections.length) goTo((state.active - 1 + sections.length) % sections.length); }

function resetAutoplay() {
  clearInterval(state.timer);
  state.timer = null;
  if (!state.autoPlaying || sections.length <= 1) return;
  state.timer = setInterval(() => {
    if (viewers.some(v => v.playing)) return;
    next();
  }, cfg.autoplayMs);
}

document.getElementById('next').addEventListener('click', next);
document.getElementById('prev').addEventListener('click', prev);
document.getElementById('autoplay').addEventListener('click', () => {
  state.autoPlaying = !state.autoPlaying;
  render();
  resetAutoplay();
});
dots.forEach((d, i) => d.addEventListener('click', () => goTo(i)));
document.addEventListener('keydown', e => {
  if (e.target.tagName === 'INPUT' || e.target.tagName === 'TEXTAREA') return;
  if (e.key === 'ArrowRight') next();
  else if (e.key === 'ArrowLeft') prev();
  else if (e.key === ' ') { e.preventDefault(); document.getElementById('autoplay').click(); }
});
window.addEventListener('pagehide', () => { state.seq++; clearInterval(state.timer); });

render();
resetAutoplay();
</script>
</body>
</html>
{{end}}`
